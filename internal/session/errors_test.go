package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindRateLimited, "rate_limited"},
		{KindTimeout, "timeout"},
		{KindUnavailable, "unavailable"},
		{KindProtocol, "protocol"},
		{KindUnknown, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &Error{Kind: KindUnavailable, Op: "session.fetch", Err: inner}

	assert.Contains(t, err.Error(), "session.fetch")
	assert.Contains(t, err.Error(), "unavailable")
	assert.ErrorIs(t, err, inner)
}

func TestKindHelpers(t *testing.T) {
	rateErr := &Error{Kind: KindRateLimited, Op: "op"}
	timeoutErr := &Error{Kind: KindTimeout, Op: "op"}
	downErr := &Error{Kind: KindUnavailable, Op: "op"}

	assert.True(t, IsRateLimited(rateErr))
	assert.False(t, IsRateLimited(timeoutErr))

	assert.True(t, IsTimeout(timeoutErr))
	assert.False(t, IsTimeout(downErr))

	assert.True(t, IsUnavailable(downErr))
	assert.False(t, IsUnavailable(rateErr))
}

func TestKindHelpers_WrappedErrors(t *testing.T) {
	base := &Error{Kind: KindRateLimited, Op: "op"}
	wrapped := fmt.Errorf("handling request: %w", base)

	assert.True(t, IsRateLimited(wrapped), "helpers must see through wrapping")
}

func TestKindHelpers_PlainErrors(t *testing.T) {
	assert.False(t, IsRateLimited(errors.New("rate_limited")),
		"plain errors never classify, even with matching text")
	assert.False(t, IsTimeout(nil))
}
