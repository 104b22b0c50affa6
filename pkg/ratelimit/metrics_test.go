package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatherCounter returns the value of a counter metric with the given labels,
// or -1 if it was not found in the registry.
func gatherCounter(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return -1
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	got := make(map[string]string, len(metric.GetLabel()))
	for _, pair := range metric.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for name, value := range labels {
		if got[name] != value {
			return false
		}
	}
	return true
}

func TestPrometheusMetrics_RecordsVerdicts(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	metrics.RecordAllowed("/app")
	metrics.RecordAllowed("/app")
	metrics.RecordDenied("/app")
	metrics.RecordBlockEscalation()

	assert.Equal(t, 2.0, gatherCounter(t, registry, "gate_rate_limit_checks_total",
		map[string]string{"status": "allowed", "endpoint": "/app"}))
	assert.Equal(t, 1.0, gatherCounter(t, registry, "gate_rate_limit_checks_total",
		map[string]string{"status": "denied", "endpoint": "/app"}))
	assert.Equal(t, 1.0, gatherCounter(t, registry, "gate_rate_limit_block_escalations_total", nil))
}

func TestPrometheusMetrics_RecordsGaugesAndHistograms(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	metrics.SetActiveKeys(42)
	metrics.RecordCheckDuration(3 * time.Millisecond)
	metrics.RecordCompaction(7)

	families, err := registry.Gather()
	require.NoError(t, err)

	found := make(map[string]bool)
	for _, family := range families {
		found[family.GetName()] = true

		switch family.GetName() {
		case "gate_rate_limit_active_keys":
			assert.Equal(t, 42.0, family.GetMetric()[0].GetGauge().GetValue())
		case "gate_rate_limit_check_duration_seconds":
			assert.Equal(t, uint64(1), family.GetMetric()[0].GetHistogram().GetSampleCount())
		case "gate_rate_limit_compacted_total":
			assert.Equal(t, 7.0, family.GetMetric()[0].GetCounter().GetValue())
		}
	}

	assert.True(t, found["gate_rate_limit_active_keys"])
	assert.True(t, found["gate_rate_limit_check_duration_seconds"])
	assert.True(t, found["gate_rate_limit_compacted_total"])
}

func TestLimiter_UsesInjectedMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := NewLimiter(Config{
		Window:        time.Minute,
		MaxChecks:     2,
		BlockDuration: 5 * time.Minute,
		Enabled:       true,
	}, nil, clock, metrics)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := limiter.Check(ctx, "client-a", "/app")
		require.NoError(t, err)
	}

	assert.Equal(t, 2.0, gatherCounter(t, registry, "gate_rate_limit_checks_total",
		map[string]string{"status": "allowed", "endpoint": "/app"}))
	assert.Equal(t, 1.0, gatherCounter(t, registry, "gate_rate_limit_checks_total",
		map[string]string{"status": "denied", "endpoint": "/app"}))
}
