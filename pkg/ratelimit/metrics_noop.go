package ratelimit

import "time"

// NoOpMetrics is a Metrics implementation that discards all measurements.
//
// It is used as the default when no metrics collector is configured, and in
// tests where metric output is irrelevant.
type NoOpMetrics struct{}

// RecordAllowed does nothing.
func (m *NoOpMetrics) RecordAllowed(endpoint string) {}

// RecordDenied does nothing.
func (m *NoOpMetrics) RecordDenied(endpoint string) {}

// RecordBlockEscalation does nothing.
func (m *NoOpMetrics) RecordBlockEscalation() {}

// RecordCheckDuration does nothing.
func (m *NoOpMetrics) RecordCheckDuration(duration time.Duration) {}

// SetActiveKeys does nothing.
func (m *NoOpMetrics) SetActiveKeys(count int) {}

// RecordCompaction does nothing.
func (m *NoOpMetrics) RecordCompaction(removed int) {}
