package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FeedMetrics contains Prometheus metrics for the live-feed consumer.
type FeedMetrics struct {
	FramesReceived  *prometheus.CounterVec
	FramesDiscarded *prometheus.CounterVec
	AlertsStored    *prometheus.CounterVec
	StoreFailures   *prometheus.CounterVec
	HandleDuration  *prometheus.HistogramVec
}

// NewFeedMetrics creates and registers feed consumer metrics.
func NewFeedMetrics(namespace string) *FeedMetrics {
	m := &FeedMetrics{
		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "frames_received_total",
				Help:      "Total number of feed frames received by frame type",
			},
			[]string{"type"},
		),
		FramesDiscarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "frames_discarded_total",
				Help:      "Total number of feed frames discarded by reason",
			},
			[]string{"reason"},
		),
		AlertsStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "alerts_stored_total",
				Help:      "Total number of feed alerts persisted by severity",
			},
			[]string{"severity"},
		),
		StoreFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "store_failures_total",
				Help:      "Total number of failed alert persistence attempts by reason",
			},
			[]string{"reason"},
		),
		HandleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "handle_duration_seconds",
				Help:      "Duration of feed frame handling in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
	}

	MustRegister(
		m.FramesReceived,
		m.FramesDiscarded,
		m.AlertsStored,
		m.StoreFailures,
		m.HandleDuration,
	)

	return m
}
