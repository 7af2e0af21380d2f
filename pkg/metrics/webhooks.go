package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records per-topic webhook processing outcomes.
type WebhookMetrics struct {
	received *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook events accepted for processing.",
	}, []string{"topic"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_skipped",
		Help: "Webhook events that resolved to a no-op.",
	}, []string{"topic"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Webhook events whose handler returned an error.",
	}, []string{"topic"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handler_duration_seconds",
		Help:    "Duration of webhook handlers in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	reg.MustRegister(received, skipped, failed, duration)
	return &WebhookMetrics{
		received: received,
		skipped:  skipped,
		failed:   failed,
		duration: duration,
	}
}

// IncReceived increments the received counter for the topic.
func (m *WebhookMetrics) IncReceived(topic string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncSkipped increments the no-op counter for the topic.
func (m *WebhookMetrics) IncSkipped(topic string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncFailed increments the failure counter for the topic.
func (m *WebhookMetrics) IncFailed(topic string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(topic)).Inc()
}

// ObserveDuration records the handler duration for the topic.
func (m *WebhookMetrics) ObserveDuration(topic string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(topic)).Observe(duration.Seconds())
}

func normalizeLabel(topic string) string {
	if topic == "" {
		return "unknown"
	}
	return topic
}
