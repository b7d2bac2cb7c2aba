package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"

	"citywatch.dev/sentinel/internal/alerting"
	"citywatch.dev/sentinel/pkg/metrics"
	"citywatch.dev/sentinel/pkg/mq"
)

// Consumer consumes live alert frames from RabbitMQ and persists them
// through the alerting service under the configured city's default zone.
type Consumer struct {
	logger   *slog.Logger
	service  *alerting.Service
	mqClient mq.ClientInterface
	cityID   string
	metrics  *metrics.FeedMetrics
	done     chan struct{}

	mu     sync.Mutex
	zoneID string
}

// ConsumerConfig holds the configuration for the Consumer.
type ConsumerConfig struct {
	Logger      *slog.Logger
	Service     *alerting.Service
	RabbitMQURL string
	QueueName   string
	CityID      string

	// Client overrides the RabbitMQ client, used by tests. When nil a
	// real client is created from RabbitMQURL and QueueName.
	Client mq.ClientInterface

	// Metrics is the optional feed metrics collector.
	Metrics *metrics.FeedMetrics

	// MQMetrics is the optional collector for the underlying MQ client.
	// Ignored when Client is supplied.
	MQMetrics *metrics.MQMetrics
}

// NewConsumer creates a new Consumer instance.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.New("consumer config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Service == nil {
		return nil, errors.New("alerting service cannot be nil")
	}

	if cfg.CityID == "" {
		return nil, errors.New("city ID cannot be empty")
	}

	client := cfg.Client
	if client == nil {
		if cfg.RabbitMQURL == "" {
			return nil, errors.New("rabbitmq URL cannot be empty")
		}
		if cfg.QueueName == "" {
			return nil, errors.New("queue name cannot be empty")
		}
		mqClient := mq.New(cfg.QueueName, cfg.RabbitMQURL, cfg.Logger)
		if cfg.MQMetrics != nil {
			mqClient.SetMetrics(cfg.MQMetrics)
		}
		client = mqClient
	}

	return &Consumer{
		logger:   cfg.Logger,
		service:  cfg.Service,
		mqClient: client,
		cityID:   cfg.CityID,
		metrics:  cfg.Metrics,
		done:     make(chan struct{}),
	}, nil
}

// Start begins consuming frames from RabbitMQ.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting feed consumer", "city_id", c.cityID)

	// Give the MQ client time to finish its initial connection.
	time.Sleep(2 * time.Second)

	deliveries, err := c.mqClient.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("feed consumer started, waiting for frames")

	go c.processFrames(ctx, deliveries)

	return nil
}

// processFrames processes incoming deliveries until the context is
// canceled or the deliveries channel closes.
func (c *Consumer) processFrames(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context canceled, stopping frame processing")
			close(c.done)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed")
				close(c.done)
				return
			}

			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery processes a single frame delivery. Malformed frames
// are acked and counted so they are never redelivered; persistence
// failures are nacked for redelivery.
func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var frame Frame
	if err := json.Unmarshal(delivery.Body, &frame); err != nil {
		c.logger.Error("failed to unmarshal feed frame", "error", err)
		c.discard("unmarshal_error")
		c.ack(delivery)
		return
	}

	if c.metrics != nil {
		c.metrics.FramesReceived.WithLabelValues(frame.Type).Inc()
	}

	var timer *prometheus.Timer
	if c.metrics != nil {
		timer = prometheus.NewTimer(c.metrics.HandleDuration.WithLabelValues(frame.Type))
		defer timer.ObserveDuration()
	}

	switch frame.Type {
	case FrameConnectionEstablished:
		c.logger.Info("feed connection established", "message", frame.Message)
		c.ack(delivery)

	case FrameError:
		c.logger.Warn("feed reported an error", "error", frame.Error)
		c.ack(delivery)

	case FrameAlert:
		c.handleAlert(ctx, delivery, &frame)

	default:
		c.logger.Warn("unknown frame type", "type", frame.Type)
		c.discard("unknown_type")
		c.ack(delivery)
	}
}

// handleAlert validates, normalizes and persists an alert frame.
func (c *Consumer) handleAlert(ctx context.Context, delivery amqp.Delivery, frame *Frame) {
	if err := validateAlert(frame); err != nil {
		c.logger.Warn("discarding invalid alert frame", "error", err)
		c.discard("invalid_alert")
		c.ack(delivery)
		return
	}

	zoneID, err := c.defaultZone(ctx)
	if err != nil {
		c.logger.Error("failed to resolve default zone",
			"city_id", c.cityID,
			"error", err,
		)
		c.storeFailure("zone_resolution")
		c.nack(delivery)
		return
	}

	alert, err := c.service.Ingest(ctx, *frame.Data, zoneID, c.cityID)
	if err != nil {
		c.logger.Error("failed to store feed alert",
			"location", frame.Data.Location,
			"error", err,
		)
		c.storeFailure("persistence")
		c.nack(delivery)
		return
	}

	if c.metrics != nil {
		c.metrics.AlertsStored.WithLabelValues(string(alert.Severity)).Inc()
	}

	c.ack(delivery)

	c.logger.Debug("feed alert stored",
		"alert_id", alert.ID,
		"severity", alert.Severity,
	)
}

// defaultZone resolves and caches the default zone for the consumer's
// city. The zone is created on first access when the city has none.
func (c *Consumer) defaultZone(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.zoneID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	zone, isNew, err := c.service.DefaultZone(ctx, c.cityID)
	if err != nil {
		return "", err
	}

	if isNew {
		c.logger.Info("created default zone for feed",
			"zone_id", zone.ID,
			"zone_name", zone.Name,
		)
	}

	c.mu.Lock()
	c.zoneID = zone.ID
	c.mu.Unlock()
	return zone.ID, nil
}

func (c *Consumer) ack(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		c.logger.Error("failed to ack frame", "error", err)
	}
}

func (c *Consumer) nack(delivery amqp.Delivery) {
	if err := delivery.Nack(false, true); err != nil {
		c.logger.Error("failed to nack frame", "error", err)
	}
}

func (c *Consumer) discard(reason string) {
	if c.metrics != nil {
		c.metrics.FramesDiscarded.WithLabelValues(reason).Inc()
	}
}

func (c *Consumer) storeFailure(reason string) {
	if c.metrics != nil {
		c.metrics.StoreFailures.WithLabelValues(reason).Inc()
	}
}

// Stop stops the consumer and closes the MQ client.
func (c *Consumer) Stop() error {
	c.logger.Info("stopping feed consumer")

	if err := c.mqClient.Close(); err != nil {
		return fmt.Errorf("failed to close mq client: %w", err)
	}

	<-c.done

	c.logger.Info("feed consumer stopped")
	return nil
}
