package session

import (
	"errors"
	"fmt"
)

// Kind classifies provider failures. Callers branch on kinds, never on
// error message text.
type Kind int

const (
	// KindUnknown covers failures that fit no other classification.
	KindUnknown Kind = iota
	// KindRateLimited means the provider (or our own client-side throttle)
	// refused the lookup because of request volume.
	KindRateLimited
	// KindTimeout means the lookup exceeded its deadline.
	KindTimeout
	// KindUnavailable means the provider is down, erroring, or fenced off
	// by an open circuit breaker.
	KindUnavailable
	// KindProtocol means the provider answered with something the gate
	// could not interpret.
	KindProtocol
)

// String returns a stable label for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by providers.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a provider error caused by
// upstream or client-side rate limiting.
func IsRateLimited(err error) bool {
	return hasKind(err, KindRateLimited)
}

// IsTimeout reports whether err is a provider lookup timeout.
func IsTimeout(err error) bool {
	return hasKind(err, KindTimeout)
}

// IsUnavailable reports whether err marks the provider as unreachable.
func IsUnavailable(err error) bool {
	return hasKind(err, KindUnavailable)
}

func hasKind(err error, kind Kind) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == kind
}
