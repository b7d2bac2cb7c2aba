package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProducerMetrics contains Prometheus metrics for the synthetic alert
// generator service.
type ProducerMetrics struct {
	FramesGenerated    *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	ActiveProducers    prometheus.Gauge
}

// NewProducerMetrics creates and registers producer metrics.
func NewProducerMetrics(namespace string) *ProducerMetrics {
	m := &ProducerMetrics{
		FramesGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "producer",
				Name:      "frames_generated_total",
				Help:      "Total number of alert frames generated by severity",
			},
			[]string{"severity"},
		),
		GenerationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "producer",
				Name:      "generation_failures_total",
				Help:      "Total number of frame generation failures",
			},
			[]string{"reason"},
		),
		GenerationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "producer",
				Name:      "generation_duration_seconds",
				Help:      "Duration of frame generation and publish operations",
				Buckets:   prometheus.DefBuckets,
			},
		),
		ActiveProducers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "producer",
				Name:      "active_producers",
				Help:      "Number of currently active producers",
			},
		),
	}

	MustRegister(
		m.FramesGenerated,
		m.GenerationFailures,
		m.GenerationDuration,
		m.ActiveProducers,
	)

	return m
}
