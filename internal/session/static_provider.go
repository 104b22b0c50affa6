package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionCookie is the cookie the static provider reads sessions from.
const DefaultSessionCookie = "cg_session"

// StaticProviderConfig configures the locally-validating provider.
type StaticProviderConfig struct {
	// CookieName is the session cookie to read. Defaults to DefaultSessionCookie.
	CookieName string

	// SigningKey is the HMAC key used to verify session tokens.
	SigningKey []byte
}

// StaticProvider validates sessions locally from a signed JWT cookie
// instead of calling the identity provider. It exists for local
// development and tests, where standing up the provider is overkill.
// It never fails with transport errors, so the guard's degraded paths
// stay unexercised under this provider.
type StaticProvider struct {
	cookieName string
	key        []byte
}

// sessionClaims is the token payload. Subject carries the user ID and
// ID (jti) carries the session ID.
type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// NewStaticProvider creates a StaticProvider.
func NewStaticProvider(cfg StaticProviderConfig) (*StaticProvider, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("static provider signing key is required")
	}
	name := cfg.CookieName
	if name == "" {
		name = DefaultSessionCookie
	}
	return &StaticProvider{cookieName: name, key: cfg.SigningKey}, nil
}

// GetSession parses and verifies the session cookie.
// Missing, malformed, expired, or badly-signed tokens all resolve to
// signed out rather than an error.
func (p *StaticProvider) GetSession(_ context.Context, r *http.Request) (*Result, error) {
	cookie, err := r.Cookie(p.cookieName)
	if err != nil {
		return &Result{}, nil
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return p.key, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return &Result{}, nil
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &Result{
		Session: &Session{
			ID: claims.ID,
			User: User{
				ID:    claims.Subject,
				Email: claims.Email,
				Name:  claims.Name,
			},
			ExpiresAt: expiresAt,
		},
	}, nil
}

// IssueToken mints a signed session token for the given user. Intended
// for development seeding and tests.
func (p *StaticProvider) IssueToken(sessionID string, user User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &sessionClaims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.key)
}

// CookieName returns the configured session cookie name.
func (p *StaticProvider) CookieName() string {
	return p.cookieName
}
