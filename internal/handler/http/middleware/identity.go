// Package middleware contains the gate's request gating middleware: client
// identity extraction, route classification, baseline security headers, and
// the auth route guard that ties them together with the rate limiter and
// the session provider.
package middleware

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIdentity is the bucket used when no client address can be derived.
// All such requests share one rate limit bucket.
const UnknownIdentity = "unknown"

// IdentityExtractor derives the rate limiting identity for a request.
// Implementations never fail; they fall back to UnknownIdentity instead.
type IdentityExtractor interface {
	ExtractIdentity(r *http.Request) string
}

// ForwardedHeaderExtractor derives the client identity from forwarding
// headers set by the edge proxy: the first X-Forwarded-For entry, then
// X-Real-IP, then UnknownIdentity.
//
// This extractor assumes the gate sits behind a trusted edge that
// overwrites these headers. Deployed without one, clients can rotate
// their apparent identity freely; use RemoteAddrExtractor there instead.
type ForwardedHeaderExtractor struct{}

// ExtractIdentity implements IdentityExtractor.
func (e *ForwardedHeaderExtractor) ExtractIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := firstForwardedAddr(xff); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}
	return UnknownIdentity
}

// RemoteAddrExtractor derives the client identity from the TCP peer
// address. It cannot be spoofed by request headers, which makes it the
// right choice when the gate is directly reachable.
type RemoteAddrExtractor struct{}

// ExtractIdentity implements IdentityExtractor.
func (e *RemoteAddrExtractor) ExtractIdentity(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if ip := net.ParseIP(r.RemoteAddr); ip != nil {
			return ip.String()
		}
		return UnknownIdentity
	}
	return host
}

// firstForwardedAddr returns the first valid IP in a comma-separated
// X-Forwarded-For value, or "" when none parses.
func firstForwardedAddr(xff string) string {
	for _, part := range strings.Split(xff, ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			return ip.String()
		}
	}
	return ""
}
