package csrf

import "github.com/prometheus/client_golang/prometheus"

// Metrics defines the interface for recording CSRF lifecycle metrics.
type Metrics interface {
	// RecordIssued records a token issuance.
	RecordIssued()

	// RecordValidation records a validation outcome by its result code.
	RecordValidation(result string)

	// RecordSwept records that expired records were removed.
	RecordSwept(removed int)

	// SetActiveTokens records the current number of live records.
	SetActiveTokens(count int)
}

// NoOpMetrics is a Metrics implementation that discards all measurements.
type NoOpMetrics struct{}

// RecordIssued does nothing.
func (m *NoOpMetrics) RecordIssued() {}

// RecordValidation does nothing.
func (m *NoOpMetrics) RecordValidation(result string) {}

// RecordSwept does nothing.
func (m *NoOpMetrics) RecordSwept(removed int) {}

// SetActiveTokens does nothing.
func (m *NoOpMetrics) SetActiveTokens(count int) {}

// PrometheusMetrics implements Metrics using Prometheus.
//
// Exposed metrics:
//   - gate_csrf_tokens_issued_total
//   - gate_csrf_validations_total{result}
//   - gate_csrf_swept_total
//   - gate_csrf_active_tokens
type PrometheusMetrics struct {
	issuedTotal      prometheus.Counter
	validationsTotal *prometheus.CounterVec
	sweptTotal       prometheus.Counter
	activeTokens     prometheus.Gauge
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers its
// collectors on the given registry.
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	issuedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_csrf_tokens_issued_total",
		Help: "Total CSRF tokens issued",
	})

	validationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_csrf_validations_total",
			Help: "Total CSRF validations by result",
		},
		[]string{"result"},
	)

	sweptTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_csrf_swept_total",
		Help: "Total expired CSRF records removed by sweeps",
	})

	activeTokens := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gate_csrf_active_tokens",
		Help: "Current number of live CSRF token records",
	})

	registry.MustRegister(issuedTotal, validationsTotal, sweptTotal, activeTokens)

	return &PrometheusMetrics{
		issuedTotal:      issuedTotal,
		validationsTotal: validationsTotal,
		sweptTotal:       sweptTotal,
		activeTokens:     activeTokens,
	}
}

// RecordIssued records a token issuance.
func (m *PrometheusMetrics) RecordIssued() {
	m.issuedTotal.Inc()
}

// RecordValidation records a validation outcome by its result code.
func (m *PrometheusMetrics) RecordValidation(result string) {
	m.validationsTotal.WithLabelValues(result).Inc()
}

// RecordSwept records that expired records were removed.
func (m *PrometheusMetrics) RecordSwept(removed int) {
	m.sweptTotal.Add(float64(removed))
}

// SetActiveTokens records the current number of live records.
func (m *PrometheusMetrics) SetActiveTokens(count int) {
	m.activeTokens.Set(float64(count))
}
