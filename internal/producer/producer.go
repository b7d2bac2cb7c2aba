// Package producer generates synthetic alert frames and publishes them
// to the live feed queue.
package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"citywatch.dev/sentinel/internal/alerting"
	"citywatch.dev/sentinel/internal/feed"
	"citywatch.dev/sentinel/pkg/generator"
	"citywatch.dev/sentinel/pkg/metrics"
	"citywatch.dev/sentinel/pkg/mq"
)

// Producer publishes generated alert frames to a message queue.
type Producer struct {
	MQClient  mq.ClientInterface
	Generator *generator.AlertGenerator
	metrics   *metrics.ProducerMetrics // Optional metrics
}

// NewProducer creates a producer around an MQ client and a generator.
func NewProducer(mqClient mq.ClientInterface, gen *generator.AlertGenerator) *Producer {
	return &Producer{
		MQClient:  mqClient,
		Generator: gen,
	}
}

// SetMetrics sets the metrics collector for this producer.
func (p *Producer) SetMetrics(m *metrics.ProducerMetrics) {
	p.metrics = m
}

// PublishAlert generates one alert event and publishes it wrapped in a
// feed frame.
func (p *Producer) PublishAlert(ctx context.Context) error {
	var timer *prometheus.Timer
	if p.metrics != nil {
		timer = prometheus.NewTimer(p.metrics.GenerationDuration)
		defer timer.ObserveDuration()
	}

	event := p.Generator.RandomEvent(time.Now().UTC())

	frame := feed.Frame{
		Type: feed.FrameAlert,
		Data: &alerting.RawEvent{
			Types:       event.Types,
			Severity:    event.Severity,
			Timestamp:   event.Timestamp,
			Location:    event.Location,
			Description: event.Description,
			SensorData:  event.SensorData,
		},
	}

	message, err := json.Marshal(frame)
	if err != nil {
		if p.metrics != nil {
			p.metrics.GenerationFailures.WithLabelValues("marshal_error").Inc()
		}
		return err
	}

	if err := p.MQClient.Push(ctx, message); err != nil {
		if p.metrics != nil {
			p.metrics.GenerationFailures.WithLabelValues("push_error").Inc()
		}
		return err
	}

	if p.metrics != nil {
		p.metrics.FramesGenerated.WithLabelValues(event.Severity).Inc()
	}

	return nil
}
