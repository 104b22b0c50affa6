package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
//
// Exposed metrics:
//   - gate_rate_limit_checks_total{status, endpoint}: verdict counters
//   - gate_rate_limit_block_escalations_total: clients escalated into a block
//   - gate_rate_limit_check_duration_seconds: check latency histogram
//   - gate_rate_limit_active_keys: tracked client identities
//   - gate_rate_limit_compacted_total: stale records removed by compaction
//
// Metrics are registered on the provided registry rather than the global
// default, which keeps tests isolated and avoids duplicate-registration
// panics when multiple limiters exist in one process.
type PrometheusMetrics struct {
	checksTotal      *prometheus.CounterVec
	escalationsTotal prometheus.Counter
	checkDuration    prometheus.Histogram
	activeKeys       prometheus.Gauge
	compactedTotal   prometheus.Counter
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers its
// collectors on the given registry.
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	checksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_rate_limit_checks_total",
			Help: "Total rate limit checks by status and endpoint",
		},
		[]string{"status", "endpoint"},
	)

	escalationsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_rate_limit_block_escalations_total",
			Help: "Total clients escalated into a rate limit block",
		},
	)

	checkDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gate_rate_limit_check_duration_seconds",
			Help:    "Duration of rate limit check operations",
			Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
	)

	activeKeys := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gate_rate_limit_active_keys",
			Help: "Current number of tracked client identities",
		},
	)

	compactedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_rate_limit_compacted_total",
			Help: "Total stale rate limit records removed by compaction",
		},
	)

	registry.MustRegister(checksTotal, escalationsTotal, checkDuration, activeKeys, compactedTotal)

	return &PrometheusMetrics{
		checksTotal:      checksTotal,
		escalationsTotal: escalationsTotal,
		checkDuration:    checkDuration,
		activeKeys:       activeKeys,
		compactedTotal:   compactedTotal,
	}
}

// RecordAllowed records a check that admitted the request.
func (m *PrometheusMetrics) RecordAllowed(endpoint string) {
	m.checksTotal.WithLabelValues("allowed", endpoint).Inc()
}

// RecordDenied records a check that rejected the request.
func (m *PrometheusMetrics) RecordDenied(endpoint string) {
	m.checksTotal.WithLabelValues("denied", endpoint).Inc()
}

// RecordBlockEscalation records a client transitioning into a block.
func (m *PrometheusMetrics) RecordBlockEscalation() {
	m.escalationsTotal.Inc()
}

// RecordCheckDuration records the duration of a rate limit check.
func (m *PrometheusMetrics) RecordCheckDuration(duration time.Duration) {
	m.checkDuration.Observe(duration.Seconds())
}

// SetActiveKeys records the current number of tracked client identities.
func (m *PrometheusMetrics) SetActiveKeys(count int) {
	m.activeKeys.Set(float64(count))
}

// RecordCompaction records that stale records were removed.
func (m *PrometheusMetrics) RecordCompaction(removed int) {
	m.compactedTotal.Add(float64(removed))
}
