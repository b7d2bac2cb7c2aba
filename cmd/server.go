package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"citywatch.dev/sentinel/internal/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the alerting server",
	Long: `Run the alerting server that:
- Consumes live alert frames from RabbitMQ
- Persists alerts, sensors and audit actions to PostgreSQL
- Serves the JSON HTTP API
- Dispatches email and voice notifications
- Exposes Prometheus metrics`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().String("db-host", "localhost", "PostgreSQL host")
	serverCmd.Flags().Int("db-port", 5432, "PostgreSQL port")
	serverCmd.Flags().String("db-user", "postgres", "PostgreSQL user")
	serverCmd.Flags().String("db-password", "", "PostgreSQL password")
	serverCmd.Flags().String("db-name", "sentinel", "PostgreSQL database name")
	serverCmd.Flags().String("db-sslmode", "disable", "PostgreSQL SSL mode")
	serverCmd.Flags().String("rabbitmq-url", "amqp://localhost:5672", "RabbitMQ URL")
	serverCmd.Flags().String("queue-name", "alert-feed", "RabbitMQ queue name for alert frames")
	serverCmd.Flags().String("city-id", "", "City the live feed ingests alerts for")
	serverCmd.Flags().Int("http-port", 8080, "HTTP API server port")
	serverCmd.Flags().Int("metrics-port", 9091, "Prometheus metrics port")
	serverCmd.Flags().String("jwt-secret", "", "Secret for validating bearer tokens")
	serverCmd.Flags().String("notify-api-key", "", "API key for the notifications endpoint")
	serverCmd.Flags().String("smtp-host", "", "SMTP host for email notifications")
	serverCmd.Flags().Int("smtp-port", 587, "SMTP port")
	serverCmd.Flags().String("smtp-username", "", "SMTP username")
	serverCmd.Flags().String("smtp-password", "", "SMTP password")
	serverCmd.Flags().String("smtp-from", "", "From address for email notifications")
	serverCmd.Flags().String("twilio-account-sid", "", "Twilio account SID for voice calls")
	serverCmd.Flags().String("twilio-auth-token", "", "Twilio auth token")
	serverCmd.Flags().String("twilio-from-number", "", "Twilio caller number")
	serverCmd.Flags().String("content-url", "", "Content generation service URL")
	serverCmd.Flags().String("content-api-key", "", "Content generation service API key")

	// Bind flags to viper
	_ = viper.BindPFlag("server.db.host", serverCmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("server.db.port", serverCmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("server.db.user", serverCmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("server.db.password", serverCmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("server.db.name", serverCmd.Flags().Lookup("db-name"))
	_ = viper.BindPFlag("server.db.sslmode", serverCmd.Flags().Lookup("db-sslmode"))
	_ = viper.BindPFlag("server.rabbitmq.url", serverCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("server.rabbitmq.queue_name", serverCmd.Flags().Lookup("queue-name"))
	_ = viper.BindPFlag("server.city_id", serverCmd.Flags().Lookup("city-id"))
	_ = viper.BindPFlag("server.http.port", serverCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("server.metrics.port", serverCmd.Flags().Lookup("metrics-port"))
	_ = viper.BindPFlag("server.auth.jwt_secret", serverCmd.Flags().Lookup("jwt-secret"))
	_ = viper.BindPFlag("server.notify.api_key", serverCmd.Flags().Lookup("notify-api-key"))
	_ = viper.BindPFlag("server.notify.smtp.host", serverCmd.Flags().Lookup("smtp-host"))
	_ = viper.BindPFlag("server.notify.smtp.port", serverCmd.Flags().Lookup("smtp-port"))
	_ = viper.BindPFlag("server.notify.smtp.username", serverCmd.Flags().Lookup("smtp-username"))
	_ = viper.BindPFlag("server.notify.smtp.password", serverCmd.Flags().Lookup("smtp-password"))
	_ = viper.BindPFlag("server.notify.smtp.from", serverCmd.Flags().Lookup("smtp-from"))
	_ = viper.BindPFlag("server.notify.twilio.account_sid", serverCmd.Flags().Lookup("twilio-account-sid"))
	_ = viper.BindPFlag("server.notify.twilio.auth_token", serverCmd.Flags().Lookup("twilio-auth-token"))
	_ = viper.BindPFlag("server.notify.twilio.from_number", serverCmd.Flags().Lookup("twilio-from-number"))
	_ = viper.BindPFlag("server.notify.content.url", serverCmd.Flags().Lookup("content-url"))
	_ = viper.BindPFlag("server.notify.content.api_key", serverCmd.Flags().Lookup("content-api-key"))
}

func runServer(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting sentinel server service")

	// Create server configuration from viper
	config := &server.Config{
		Logger:           logger,
		DBHost:           viper.GetString("server.db.host"),
		DBPort:           viper.GetInt("server.db.port"),
		DBUser:           viper.GetString("server.db.user"),
		DBPassword:       viper.GetString("server.db.password"),
		DBName:           viper.GetString("server.db.name"),
		DBSSLMode:        viper.GetString("server.db.sslmode"),
		RabbitMQURL:      viper.GetString("server.rabbitmq.url"),
		QueueName:        viper.GetString("server.rabbitmq.queue_name"),
		CityID:           viper.GetString("server.city_id"),
		HTTPPort:         viper.GetInt("server.http.port"),
		MetricsPort:      viper.GetInt("server.metrics.port"),
		JWTSecret:        viper.GetString("server.auth.jwt_secret"),
		NotifyAPIKey:     viper.GetString("server.notify.api_key"),
		SMTPHost:         viper.GetString("server.notify.smtp.host"),
		SMTPPort:         viper.GetInt("server.notify.smtp.port"),
		SMTPUsername:     viper.GetString("server.notify.smtp.username"),
		SMTPPassword:     viper.GetString("server.notify.smtp.password"),
		SMTPFrom:         viper.GetString("server.notify.smtp.from"),
		TwilioAccountSID: viper.GetString("server.notify.twilio.account_sid"),
		TwilioAuthToken:  viper.GetString("server.notify.twilio.auth_token"),
		TwilioFromNumber: viper.GetString("server.notify.twilio.from_number"),
		ContentURL:       viper.GetString("server.notify.content.url"),
		ContentAPIKey:    viper.GetString("server.notify.content.api_key"),
	}

	// Create and run server
	srv, err := server.NewServer(config)
	if err != nil {
		logger.Error("failed to create sentinel server", "error", err)
		return err
	}

	logger.Info("sentinel server configuration",
		"db_host", config.DBHost,
		"db_port", config.DBPort,
		"db_name", config.DBName,
		"rabbitmq_url", config.RabbitMQURL,
		"queue", config.QueueName,
		"city_id", config.CityID,
		"http_port", config.HTTPPort,
		"metrics_port", config.MetricsPort,
	)

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("sentinel server error", "error", err)
		return err
	}

	logger.Info("sentinel server stopped")
	return nil
}
