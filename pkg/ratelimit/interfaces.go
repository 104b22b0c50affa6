// Package ratelimit implements per-client rate limiting with escalating blocks.
//
// Each client identity gets a counter inside a rolling time window. Exceeding
// the per-window maximum escalates the client into a block that outlives the
// window itself; the block clears only after the configured block duration has
// elapsed with no successful unblock. The package is framework-agnostic and is
// designed to sit behind an HTTP middleware adapter.
package ratelimit

import (
	"context"
	"time"
)

// Record holds the rate limiting state for a single client identity.
//
// A record is created on first observation of a client and mutated on every
// check. Blocked == true implies the client exceeded the per-window maximum
// at the moment blocking was set.
type Record struct {
	// Count is the number of checks observed in the current window (>= 1).
	Count int

	// LastAttempt is the time of the most recent state change for this client.
	// While a client is blocked the timestamp is NOT re-stamped on further
	// denied checks; it moves again only on the unblock transition.
	LastAttempt time.Time

	// Blocked indicates the client is currently in an escalated block.
	Blocked bool
}

// UpdateFunc inspects the current record for a key and returns the record to
// store. The exists flag reports whether a record was present. Returning
// keep == false removes the record.
//
// Implementations of Store MUST execute UpdateFunc atomically per key:
// no other read or write for the same key may interleave with it.
type UpdateFunc func(rec Record, exists bool) (updated Record, keep bool)

// Store defines the storage abstraction for rate limit records.
//
// The contract deliberately exposes a single atomic read-modify-write
// primitive instead of separate get/set calls, so that concurrent checks for
// one identity cannot race past the limit. Implementations can be backed by
// an in-process table or a distributed cache.
//
// All methods must be safe for concurrent use.
type Store interface {
	// Update atomically applies fn to the record stored under key.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// Compact removes every record for which stale returns true.
	// It takes the same lock discipline as Update and returns the number
	// of records removed.
	Compact(ctx context.Context, stale func(key string, rec Record) bool) (int, error)

	// KeyCount returns the number of records currently in storage.
	KeyCount(ctx context.Context) (int, error)
}

// Metrics defines the interface for recording rate limiting metrics.
//
// Implementations can use Prometheus, StatsD, or custom metrics systems.
type Metrics interface {
	// RecordAllowed records a check that admitted the request.
	RecordAllowed(endpoint string)

	// RecordDenied records a check that rejected the request.
	RecordDenied(endpoint string)

	// RecordBlockEscalation records a client transitioning into a block.
	RecordBlockEscalation()

	// RecordCheckDuration records the duration of a rate limit check.
	RecordCheckDuration(duration time.Duration)

	// SetActiveKeys records the current number of tracked client identities.
	SetActiveKeys(count int)

	// RecordCompaction records that stale records were removed.
	RecordCompaction(removed int)
}

// Clock provides an abstraction for time operations to enable testing.
//
// This interface allows dependency injection of time functions, making it
// easy to test window expiry and block escalation with fake clocks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
