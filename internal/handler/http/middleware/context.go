package middleware

import (
	"context"

	"contentgate/internal/session"
)

type contextKey string

const sessionContextKey contextKey = "gate_session"

// WithSession stores the resolved session in the context for downstream handlers.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns the session resolved by the guard, if any.
// The second return is false on degraded and unauthenticated requests.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*session.Session)
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}
