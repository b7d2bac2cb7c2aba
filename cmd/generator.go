package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"citywatch.dev/sentinel/internal/producer"
	"citywatch.dev/sentinel/pkg/metrics"
)

var generatorCmd = &cobra.Command{
	Use:   "generator",
	Short: "Run the alert generator",
	Long: `Run the alert generator that:
- Generates synthetic raw alert events
- Publishes alert frames to the RabbitMQ feed queue
- Supports multiple concurrent producers`,
	RunE: runGenerator,
}

func init() {
	rootCmd.AddCommand(generatorCmd)

	// Generator-specific flags
	generatorCmd.Flags().String("rabbitmq-url", "amqp://localhost:5672", "RabbitMQ URL")
	generatorCmd.Flags().String("queue-name", "alert-feed", "RabbitMQ queue name for alert frames")
	generatorCmd.Flags().Int("producer-count", 3, "Number of concurrent producers")
	generatorCmd.Flags().Int("location-count", 8, "Number of distinct locations per producer")
	generatorCmd.Flags().Duration("interval", 5*time.Second, "Interval between generated frames")
	generatorCmd.Flags().Int("metrics-port", 9092, "Prometheus metrics server port")

	// Bind flags to viper
	_ = viper.BindPFlag("generator.rabbitmq.url", generatorCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("generator.rabbitmq.queue_name", generatorCmd.Flags().Lookup("queue-name"))
	_ = viper.BindPFlag("generator.producer_count", generatorCmd.Flags().Lookup("producer-count"))
	_ = viper.BindPFlag("generator.location_count", generatorCmd.Flags().Lookup("location-count"))
	_ = viper.BindPFlag("generator.interval", generatorCmd.Flags().Lookup("interval"))
	_ = viper.BindPFlag("generator.metrics_port", generatorCmd.Flags().Lookup("metrics-port"))
}

func runGenerator(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting generator service")

	// Create producer configuration from viper
	config := &producer.ServerConfig{
		Logger:        logger,
		RabbitMQURL:   viper.GetString("generator.rabbitmq.url"),
		QueueName:     viper.GetString("generator.rabbitmq.queue_name"),
		ProducerCount: viper.GetInt("generator.producer_count"),
		LocationCount: viper.GetInt("generator.location_count"),
		Interval:      viper.GetDuration("generator.interval"),
		Metrics:       metrics.NewProducerMetrics("sentinel"),
		MQMetrics:     metrics.NewMQMetrics("sentinel"),
	}

	// Expose publish metrics alongside the producers
	metricsAddr := fmt.Sprintf(":%d", viper.GetInt("generator.metrics_port"))
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	go func() {
		logger.Info("starting metrics server", "address", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Create and run server
	srv, err := producer.NewServer(config)
	if err != nil {
		logger.Error("failed to create generator server", "error", err)
		return err
	}

	logger.Info("generator server configuration",
		"rabbitmq_url", config.RabbitMQURL,
		"queue", config.QueueName,
		"producer_count", config.ProducerCount,
		"location_count", config.LocationCount,
		"interval", config.Interval,
	)

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("generator server error", "error", err)
		return err
	}

	logger.Info("generator server stopped")
	return nil
}
