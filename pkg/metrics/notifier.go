package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NotifierMetrics contains Prometheus metrics for notification dispatch.
type NotifierMetrics struct {
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	SendDuration        *prometheus.HistogramVec
}

// NewNotifierMetrics creates and registers notification dispatch metrics.
func NewNotifierMetrics(namespace string) *NotifierMetrics {
	m := &NotifierMetrics{
		NotificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notifier",
				Name:      "notifications_sent_total",
				Help:      "Total number of notifications sent by channel",
			},
			[]string{"channel"},
		),
		NotificationsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notifier",
				Name:      "notifications_failed_total",
				Help:      "Total number of failed notification attempts by channel",
			},
			[]string{"channel"},
		),
		SendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "notifier",
				Name:      "send_duration_seconds",
				Help:      "Duration of notification sends in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"channel"},
		),
	}

	MustRegister(
		m.NotificationsSent,
		m.NotificationsFailed,
		m.SendDuration,
	)

	return m
}
