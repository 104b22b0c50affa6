// Package csrf implements a single-use, time-boxed CSRF token lifecycle
// keyed by session identity.
//
// Each session holds at most one live token. Issuing a new token overwrites
// any prior record, implicitly invalidating the old token even if unused.
// A token is consumed on first successful validation and can never validate
// again; expired records are removed by a periodic sweep.
package csrf

import "time"

// Result is the outcome of validating a presented CSRF token.
type Result int

const (
	// Valid means the token matched and has now been consumed.
	Valid Result = iota

	// Missing means the presented token was empty or absent.
	Missing

	// NotFound means no token record exists for the session.
	NotFound

	// Expired means the session's token record outlived its TTL.
	// The record is evicted as a side effect of this verdict.
	Expired

	// AlreadyUsed means the session's token was consumed by an earlier
	// validation.
	AlreadyUsed

	// Mismatch means the presented token differs from the stored one.
	Mismatch
)

// String returns a stable lower-case code for the result, suitable for
// metrics labels and client-facing rejection reasons.
func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Missing:
		return "missing"
	case NotFound:
		return "not_found"
	case Expired:
		return "expired"
	case AlreadyUsed:
		return "already_used"
	case Mismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Clock provides an abstraction for time operations to enable testing.
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
