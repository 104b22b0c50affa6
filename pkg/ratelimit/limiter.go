package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Limiter implements sliding-window rate limiting with escalating blocks.
//
// Per client identity the limiter keeps a counter inside a rolling window.
// When the counter exceeds the configured maximum, the client transitions
// into a block that lasts BlockDuration regardless of the window having
// elapsed. While blocked, denied checks do not re-stamp the record; the
// block runs out relative to the moment it was last triggered, and the next
// check after expiry clears it and starts a fresh window.
//
// Check is total over its inputs: it never panics and only returns an error
// when the underlying store fails, which for the in-memory store is never.
//
// Algorithm per check (executed atomically per identity via Store.Update):
//  1. No prior record: create {Count: 1, LastAttempt: now}; allow.
//  2. Blocked record, block expired: clear block, reset to Count 1; allow.
//  3. Blocked record, block active: deny without mutating LastAttempt.
//  4. Window elapsed: reset to Count 1, LastAttempt now; allow.
//  5. Within window: increment; if Count exceeds MaxChecks, set Blocked and
//     deny (emitting a warning-level event), else allow.
type Limiter struct {
	config  Config
	store   Store
	clock   Clock
	metrics Metrics
}

// NewLimiter creates a new Limiter.
//
// Nil store, clock, or metrics fall back to an InMemoryStore sized from the
// config, the system clock, and no-op metrics respectively. Zero config
// fields are filled with defaults.
func NewLimiter(config Config, store Store, clock Clock, metrics Metrics) *Limiter {
	config.ApplyDefaults()

	if store == nil {
		store = NewInMemoryStore(InMemoryStoreConfig{MaxKeys: config.MaxKeys})
	}
	if clock == nil {
		clock = &SystemClock{}
	}
	if metrics == nil {
		metrics = &NoOpMetrics{}
	}

	return &Limiter{
		config:  config,
		store:   store,
		clock:   clock,
		metrics: metrics,
	}
}

// Config returns the limiter's effective configuration (defaults applied).
func (l *Limiter) Config() Config {
	return l.config
}

// Check classifies one request from the given client identity as allowed or
// rate limited, mutating the identity's record as a side effect.
//
// The endpoint parameter is used only for metrics labels.
func (l *Limiter) Check(ctx context.Context, identity, endpoint string) (*Decision, error) {
	if !l.config.Enabled {
		now := l.clock.Now()
		return newAllowedDecision(identity, l.config.MaxChecks, l.config.MaxChecks, now, now.Add(l.config.Window)), nil
	}

	start := l.clock.Now()

	var decision *Decision
	var escalated bool

	err := l.store.Update(ctx, identity, func(rec Record, exists bool) (Record, bool) {
		now := l.clock.Now()

		switch {
		case !exists:
			rec = Record{Count: 1, LastAttempt: now}
			decision = newAllowedDecision(identity, l.config.MaxChecks, l.config.MaxChecks-1, now, now.Add(l.config.Window))

		case rec.Blocked && now.Sub(rec.LastAttempt) > l.config.BlockDuration:
			// Block served out: clear it and start a fresh window.
			rec = Record{Count: 1, LastAttempt: now}
			decision = newAllowedDecision(identity, l.config.MaxChecks, l.config.MaxChecks-1, now, now.Add(l.config.Window))

		case rec.Blocked:
			// Sticky block: LastAttempt is deliberately not re-stamped,
			// so repeated checks cannot extend the block.
			decision = newDeniedDecision(identity, l.config.MaxChecks, now, rec.LastAttempt.Add(l.config.BlockDuration))

		case now.Sub(rec.LastAttempt) > l.config.Window:
			rec = Record{Count: 1, LastAttempt: now}
			decision = newAllowedDecision(identity, l.config.MaxChecks, l.config.MaxChecks-1, now, now.Add(l.config.Window))

		default:
			rec.Count++
			rec.LastAttempt = now
			if rec.Count > l.config.MaxChecks {
				rec.Blocked = true
				escalated = true
				decision = newDeniedDecision(identity, l.config.MaxChecks, now, now.Add(l.config.BlockDuration))
			} else {
				decision = newAllowedDecision(identity, l.config.MaxChecks, l.config.MaxChecks-rec.Count, now, rec.LastAttempt.Add(l.config.Window))
			}
		}

		return rec, true
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check for %q: %w", identity, err)
	}

	l.metrics.RecordCheckDuration(l.clock.Now().Sub(start))

	if escalated {
		l.metrics.RecordBlockEscalation()
		slog.Warn("client escalated into rate limit block",
			slog.String("identity", identity),
			slog.Int("limit", l.config.MaxChecks),
			slog.Duration("window", l.config.Window),
			slog.Duration("block_duration", l.config.BlockDuration),
		)
	}

	if decision.Allowed {
		l.metrics.RecordAllowed(endpoint)
	} else {
		l.metrics.RecordDenied(endpoint)
	}

	return decision, nil
}

// Compact removes records that can no longer influence a decision: unblocked
// records whose window has long elapsed and blocked records whose block has
// expired. It should be run periodically to bound memory growth under many
// distinct client identities.
//
// Returns the number of records removed.
func (l *Limiter) Compact(ctx context.Context) (int, error) {
	now := l.clock.Now()

	removed, err := l.store.Compact(ctx, func(key string, rec Record) bool {
		if rec.Blocked {
			return now.Sub(rec.LastAttempt) > l.config.BlockDuration
		}
		return now.Sub(rec.LastAttempt) > l.config.Window
	})
	if err != nil {
		return 0, fmt.Errorf("rate limit compaction: %w", err)
	}

	if removed > 0 {
		l.metrics.RecordCompaction(removed)
	}

	if count, err := l.store.KeyCount(ctx); err == nil {
		l.metrics.SetActiveKeys(count)
	}

	return removed, nil
}

// StartCompaction runs Compact on a fixed interval until ctx is cancelled.
//
// This is intended to be launched as a background goroutine at process init
// (for example inside an errgroup alongside the HTTP server) and stops
// cleanly at shutdown.
func (l *Limiter) StartCompaction(ctx context.Context) {
	ticker := time.NewTicker(l.config.CompactionInterval)
	defer ticker.Stop()

	slog.Info("rate limit compaction started",
		slog.Duration("interval", l.config.CompactionInterval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("rate limit compaction stopped")
			return

		case <-ticker.C:
			removed, err := l.Compact(ctx)
			if err != nil {
				slog.Error("rate limit compaction failed", slog.Any("error", err))
				continue
			}
			slog.Debug("rate limit compaction completed", slog.Int("removed", removed))
		}
	}
}
