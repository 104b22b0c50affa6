// Package session resolves the caller's session through the external
// identity provider. Providers return typed errors so the gate can
// distinguish upstream throttling from genuine outages without ever
// inspecting message text.
package session

import (
	"context"
	"net/http"
	"time"
)

// User identifies the signed-in principal as reported by the provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is an authenticated session resolved from request credentials.
type Session struct {
	ID        string
	User      User
	ExpiresAt time.Time
}

// Result carries the outcome of a session lookup. Session is nil when the
// caller is simply not signed in. RefreshedCookies holds any Set-Cookie
// values the provider minted during the lookup (sliding renewal); the gate
// forwards them to the client on every response branch, redirects included.
type Result struct {
	Session          *Session
	RefreshedCookies []*http.Cookie
}

// Provider resolves the session for an incoming request using the
// request's own credentials (cookies).
type Provider interface {
	GetSession(ctx context.Context, r *http.Request) (*Result, error)
}
