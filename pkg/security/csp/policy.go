package csp

import (
	"fmt"
	"strings"
)

// Builder provides a fluent interface for constructing Content-Security-Policy headers.
//
// CSP (Content Security Policy) is a security standard that helps prevent cross-site
// scripting (XSS), clickjacking, and other code injection attacks by declaring which
// sources are trusted for loading content.
//
// Example Usage:
//
//	policy := NewBuilder().
//	    DefaultSrc("'self'").
//	    ScriptSrc("'self'", "https://cdn.example.com").
//	    Build()
//	// Returns: "default-src 'self'; script-src 'self' https://cdn.example.com"
//
// Thread Safety: Builder is not thread-safe. Create separate instances for concurrent use.
type Builder struct {
	directives map[string][]string
	reportOnly bool
}

// NewBuilder creates a new Builder with no directives set.
//
// Returns:
//   - *Builder: A new builder instance ready for configuration
//
// Example:
//
//	builder := NewBuilder()
//	builder.DefaultSrc("'self'")
func NewBuilder() *Builder {
	return &Builder{
		directives: make(map[string][]string),
		reportOnly: false,
	}
}

// DefaultSrc sets the default-src directive.
//
// This directive serves as a fallback for the other fetch directives. If a specific
// directive (like script-src) is not defined, the policy falls back to default-src.
//
// Common Source Values:
//   - "'self'": Allow resources from the same origin
//   - "'none'": Block all resources
//   - "'unsafe-inline'": Allow inline scripts/styles (not recommended)
//   - "https://example.com": Allow resources from a specific domain
//   - "data:": Allow data: URIs
//
// Returns:
//   - *Builder: The builder instance for method chaining
func (b *Builder) DefaultSrc(sources ...string) *Builder {
	b.directives["default-src"] = sources
	return b
}

// ScriptSrc sets the script-src directive.
//
// Controls which sources are allowed for JavaScript execution. This is one of the
// most important directives for preventing XSS attacks.
func (b *Builder) ScriptSrc(sources ...string) *Builder {
	b.directives["script-src"] = sources
	return b
}

// StyleSrc sets the style-src directive, controlling allowed stylesheet sources.
func (b *Builder) StyleSrc(sources ...string) *Builder {
	b.directives["style-src"] = sources
	return b
}

// ImgSrc sets the img-src directive, controlling allowed image sources.
func (b *Builder) ImgSrc(sources ...string) *Builder {
	b.directives["img-src"] = sources
	return b
}

// FontSrc sets the font-src directive, controlling allowed font sources.
func (b *Builder) FontSrc(sources ...string) *Builder {
	b.directives["font-src"] = sources
	return b
}

// ConnectSrc sets the connect-src directive.
//
// Controls which URLs can be loaded using script interfaces such as fetch,
// XMLHttpRequest, WebSocket, and EventSource.
func (b *Builder) ConnectSrc(sources ...string) *Builder {
	b.directives["connect-src"] = sources
	return b
}

// FrameAncestors sets the frame-ancestors directive.
//
// Controls which sources can embed this page in <frame>, <iframe>, <object>,
// or <embed>. This helps prevent clickjacking attacks.
//
// Common Values:
//   - "'none'": Prevent all framing (recommended for most applications)
//   - "'self'": Allow framing only from the same origin
func (b *Builder) FrameAncestors(sources ...string) *Builder {
	b.directives["frame-ancestors"] = sources
	return b
}

// FormAction sets the form-action directive, controlling which URLs can be
// used as the action of HTML form submissions.
func (b *Builder) FormAction(sources ...string) *Builder {
	b.directives["form-action"] = sources
	return b
}

// BaseUri sets the base-uri directive.
//
// Controls which URLs can be used in a document's <base> element, preventing
// attackers from changing the base URL of relative URLs.
func (b *Builder) BaseUri(sources ...string) *Builder {
	b.directives["base-uri"] = sources
	return b
}

// ObjectSrc sets the object-src directive.
//
// Controls which sources are allowed for <object> and <embed> elements.
// It is recommended to set this to 'none'.
func (b *Builder) ObjectSrc(sources ...string) *Builder {
	b.directives["object-src"] = sources
	return b
}

// ReportUri sets the report-uri directive.
//
// Specifies a URI where violation reports should be sent. Deprecated in CSP
// Level 3 in favor of report-to, but still widely supported.
func (b *Builder) ReportUri(uri string) *Builder {
	b.directives["report-uri"] = []string{uri}
	return b
}

// ReportOnly sets whether the policy should be in report-only mode.
//
// In report-only mode violations are reported but not enforced, which is
// useful for trialing a policy before turning enforcement on.
func (b *Builder) ReportOnly(enabled bool) *Builder {
	b.reportOnly = enabled
	return b
}

// Build generates the CSP header value string.
//
// Directives are joined with semicolons, and sources within each directive are
// space-separated. Directives appear in a fixed order for readability.
//
// Returns:
//   - string: The complete CSP policy string ready for use in HTTP headers
//
// Example:
//
//	policy := NewBuilder().
//	    DefaultSrc("'self'").
//	    ScriptSrc("'self'", "https://cdn.example.com").
//	    Build()
//	// Returns: "default-src 'self'; script-src 'self' https://cdn.example.com"
func (b *Builder) Build() string {
	if len(b.directives) == 0 {
		return ""
	}

	directiveOrder := []string{
		"default-src",
		"script-src",
		"style-src",
		"img-src",
		"font-src",
		"connect-src",
		"frame-ancestors",
		"form-action",
		"base-uri",
		"object-src",
		"report-uri",
	}

	var parts []string
	for _, directive := range directiveOrder {
		if sources, exists := b.directives[directive]; exists && len(sources) > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", directive, strings.Join(sources, " ")))
		}
	}

	return strings.Join(parts, "; ")
}

// HeaderName returns the appropriate CSP header name based on report-only mode.
//
// Returns:
//   - "Content-Security-Policy-Report-Only" if report-only mode is enabled
//   - "Content-Security-Policy" for enforcement mode
//
// Example:
//
//	builder := NewBuilder().ReportOnly(true)
//	w.Header().Set(builder.HeaderName(), builder.Build())
func (b *Builder) HeaderName() string {
	if b.reportOnly {
		return "Content-Security-Policy-Report-Only"
	}
	return "Content-Security-Policy"
}

// AppPolicy returns the CSP policy applied to responses served through the
// gate for the browser-facing application.
//
// The application is a server-rendered dashboard with a small amount of
// first-party JavaScript, so the policy allows same-origin resources plus
// data: URIs for inline images and fonts, and blocks framing entirely.
//
// Returns:
//   - *Builder: A pre-configured builder, further adjustable before Build
//
// Example:
//
//	policy := AppPolicy().Build()
//	w.Header().Set("Content-Security-Policy", policy)
func AppPolicy() *Builder {
	return NewBuilder().
		DefaultSrc("'self'").
		ScriptSrc("'self'").
		StyleSrc("'self'", "'unsafe-inline'").
		ImgSrc("'self'", "data:").
		FontSrc("'self'", "data:").
		ConnectSrc("'self'").
		FrameAncestors("'none'").
		BaseUri("'self'").
		FormAction("'self'").
		ObjectSrc("'none'")
}

// StrictAPIPolicy returns a strict CSP policy for JSON API responses.
//
// API responses never execute in a document context, so everything except
// same-origin connections is blocked outright.
//
// Returns:
//   - *Builder: A pre-configured builder with strict directives
func StrictAPIPolicy() *Builder {
	return NewBuilder().
		DefaultSrc("'none'").
		ConnectSrc("'self'").
		FrameAncestors("'none'").
		BaseUri("'self'").
		FormAction("'self'")
}
