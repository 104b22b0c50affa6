package ratelimit

import (
	"fmt"
	"time"
)

// Decision represents the result of a rate limit check.
//
// It carries the verdict plus the metadata needed to populate the
// X-RateLimit-* response headers.
type Decision struct {
	// Key is the client identity the decision applies to.
	Key string

	// Allowed indicates whether the request should be permitted.
	Allowed bool

	// Blocked indicates the client is inside an escalated block.
	// Blocked implies !Allowed.
	Blocked bool

	// Limit is the maximum number of checks allowed in the window.
	Limit int

	// Remaining is the number of checks remaining in the current window.
	// Zero means the limit has been reached.
	Remaining int

	// ResetAt is when the current window (or, for a blocked client, the
	// block) expires. Clients should wait until this time before retrying.
	ResetAt time.Time

	// RetryAfter is the duration the client should wait before retrying,
	// calculated as ResetAt minus the check time.
	RetryAfter time.Duration
}

// String returns a human-readable representation of the decision.
func (d *Decision) String() string {
	if d.Allowed {
		return fmt.Sprintf("Decision{Allowed: true, Key: %s, Remaining: %d/%d, ResetAt: %s}",
			d.Key, d.Remaining, d.Limit, d.ResetAt.Format(time.RFC3339))
	}

	return fmt.Sprintf("Decision{Allowed: false, Key: %s, Blocked: %v, Limit: %d, RetryAfter: %s}",
		d.Key, d.Blocked, d.Limit, d.RetryAfter)
}

// IsDenied returns true if the request is denied.
func (d *Decision) IsDenied() bool {
	return !d.Allowed
}

// RetryAfterSeconds returns the retry delay in whole seconds, floored at zero.
//
// This is useful for the Retry-After HTTP header.
func (d *Decision) RetryAfterSeconds() int64 {
	seconds := int64(d.RetryAfter.Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

func newAllowedDecision(key string, limit, remaining int, now, resetAt time.Time) *Decision {
	return &Decision{
		Key:        key,
		Allowed:    true,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: resetAt.Sub(now),
	}
}

func newDeniedDecision(key string, limit int, now, resetAt time.Time) *Decision {
	retryAfter := resetAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}

	return &Decision{
		Key:        key,
		Allowed:    false,
		Blocked:    true,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
	}
}
