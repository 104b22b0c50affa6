package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GuardMetrics records gating decisions.
type GuardMetrics interface {
	// RecordDecision records one gating decision.
	// Decisions: pass_through, degraded_pass_through, redirect_auth, redirect_home.
	RecordDecision(decision, route string)
}

// NoOpGuardMetrics discards all observations.
type NoOpGuardMetrics struct{}

// RecordDecision does nothing.
func (m *NoOpGuardMetrics) RecordDecision(string, string) {}

// PrometheusGuardMetrics exports gating decisions to a Prometheus registry.
type PrometheusGuardMetrics struct {
	decisions *prometheus.CounterVec
}

// NewPrometheusGuardMetrics creates and registers guard metrics on the given registry.
func NewPrometheusGuardMetrics(registry *prometheus.Registry) *PrometheusGuardMetrics {
	m := &PrometheusGuardMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gate_guard_decisions_total",
				Help: "Total gating decisions by decision and route class.",
			},
			[]string{"decision", "route"},
		),
	}
	registry.MustRegister(m.decisions)
	return m
}

// RecordDecision records one gating decision.
func (m *PrometheusGuardMetrics) RecordDecision(decision, route string) {
	m.decisions.WithLabelValues(decision, route).Inc()
}
