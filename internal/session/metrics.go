package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records session lookup outcomes.
type Metrics interface {
	// ObserveFetch records one lookup with its outcome label and duration.
	// Outcomes: hit, miss, rate_limited, timeout, unavailable, protocol, unknown.
	ObserveFetch(outcome string, d time.Duration)
}

// NoOpMetrics discards all observations.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a metrics recorder that does nothing.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// ObserveFetch does nothing.
func (m *NoOpMetrics) ObserveFetch(string, time.Duration) {}

// PrometheusMetrics exports session lookup metrics to a Prometheus registry.
type PrometheusMetrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// NewPrometheusMetrics creates and registers session metrics on the given registry.
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	m := &PrometheusMetrics{
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gate_session_fetches_total",
				Help: "Total session lookups against the identity provider by outcome.",
			},
			[]string{"outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gate_session_fetch_duration_seconds",
				Help:    "Latency of session lookups against the identity provider.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
	registry.MustRegister(m.fetchTotal, m.fetchDuration)
	return m
}

// ObserveFetch records one lookup outcome.
func (m *PrometheusMetrics) ObserveFetch(outcome string, d time.Duration) {
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
