package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"contentgate/internal/observability/tracing"
	"contentgate/internal/session"
	"contentgate/pkg/ratelimit"
)

// Decision labels for metrics and logs.
const (
	decisionPassThrough         = "pass_through"
	decisionDegradedPassThrough = "degraded_pass_through"
	decisionRedirectAuth        = "redirect_auth"
	decisionRedirectHome        = "redirect_home"
)

// Auth status values emitted on the X-Auth-Status header for degraded branches.
const (
	authStatusRateLimited = "rate-limited"
	authStatusDegraded    = "degraded"
)

// GuardConfig configures the auth route guard.
type GuardConfig struct {
	// Limiter is the per-client rate limiter consulted before anything else.
	Limiter *ratelimit.Limiter

	// Sessions resolves the caller's session through the identity provider.
	Sessions session.Provider

	// Identity derives the rate limiting key for a request.
	// Default: ForwardedHeaderExtractor.
	Identity IdentityExtractor

	// Routes classifies request paths. Required.
	Routes *RouteClassifier

	// Headers is the baseline security header set attached to gated responses.
	Headers SecurityHeadersConfig

	// AuthEntryPath is where unauthenticated callers of protected paths are
	// sent. The originally requested path is appended as ?next=.
	// Default: "/auth/signin"
	AuthEntryPath string

	// AppHomePath is where signed-in callers of auth-only paths are sent.
	// Default: "/app"
	AppHomePath string

	// FailOpenOnTimeout treats session lookup timeouts like upstream rate
	// limiting: degraded pass-through instead of unauthenticated routing.
	// Leave false to keep provider outages from becoming an auth bypass.
	FailOpenOnTimeout bool

	// Logger receives gating events. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records gating decisions. Default: NoOpGuardMetrics.
	Metrics GuardMetrics
}

// ApplyDefaults fills zero-valued optional fields.
func (c *GuardConfig) ApplyDefaults() {
	if c.Identity == nil {
		c.Identity = &ForwardedHeaderExtractor{}
	}
	if c.AuthEntryPath == "" {
		c.AuthEntryPath = "/auth/signin"
	}
	if c.AppHomePath == "" {
		c.AppHomePath = "/app"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Metrics == nil {
		c.Metrics = &NoOpGuardMetrics{}
	}
}

// Validate checks the configuration for required fields.
func (c *GuardConfig) Validate() error {
	if c.Limiter == nil {
		return errors.New("guard requires a rate limiter")
	}
	if c.Sessions == nil {
		return errors.New("guard requires a session provider")
	}
	if c.Routes == nil {
		return errors.New("guard requires a route classifier")
	}
	return nil
}

// Guard is the auth route guard. For every request it consults the rate
// limiter, resolves the caller's session, classifies the path, and settles
// on exactly one of three outcomes: pass through, degraded pass through,
// or redirect. It never fails a request outright.
//
// Two branches deliberately trade enforcement for availability: a client
// blocked by the gate's own limiter, and a session lookup refused by the
// provider's rate limiting, both pass through without auth evaluation.
// Every other lookup failure is treated as "not signed in", which for
// protected paths means a redirect to the auth entry. Only the provider's
// explicit rate limit signal fails open; generic errors never do.
type Guard struct {
	config GuardConfig
}

// NewGuard creates a Guard from the given configuration.
func NewGuard(cfg GuardConfig) (*Guard, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Guard{config: cfg}, nil
}

// Middleware returns the guard as standard HTTP middleware.
func (g *Guard) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, next)
		})
	}
}

func (g *Guard) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ctx, span := tracing.GetTracer().Start(r.Context(), "guard.decide")
	defer span.End()
	r = r.WithContext(ctx)

	identity := g.config.Identity.ExtractIdentity(r)
	route := g.config.Routes.Classify(r.URL.Path)
	span.SetAttributes(attribute.String("guard.route", route.String()))

	verdict, err := g.config.Limiter.Check(r.Context(), identity, route.String())
	if err != nil {
		// A broken limiter must not take the site down with it.
		g.config.Logger.Error("rate limit check failed, admitting request",
			slog.String("identity", identity),
			slog.Any("error", err),
		)
	} else if verdict.IsDenied() {
		// Blocked clients skip auth entirely rather than piling their
		// retries onto the identity provider.
		writeRateLimitHeaders(w.Header(), verdict)
		g.record(span, decisionDegradedPassThrough, route)
		g.config.Logger.Warn("auth evaluation skipped for blocked client",
			slog.String("identity", identity),
			slog.String("path", r.URL.Path),
			slog.Time("reset_at", verdict.ResetAt),
		)
		next.ServeHTTP(w, r)
		return
	}

	res, err := g.config.Sessions.GetSession(r.Context(), r)

	if err != nil && g.failsOpen(err) {
		status := authStatusRateLimited
		if !session.IsRateLimited(err) {
			status = authStatusDegraded
		}
		g.config.Headers.Apply(w.Header())
		w.Header().Set("X-Auth-Status", status)
		g.record(span, decisionDegradedPassThrough, route)
		g.config.Logger.Warn("auth enforcement skipped, provider degraded",
			slog.String("identity", identity),
			slog.String("path", r.URL.Path),
			slog.String("auth_status", status),
			slog.Any("error", err),
		)
		next.ServeHTTP(w, r)
		return
	}

	var sess *session.Session
	if err != nil {
		// Fail closed: an unclassified provider failure reads as signed out.
		g.config.Logger.Warn("session lookup failed, treating caller as unauthenticated",
			slog.String("identity", identity),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	} else {
		sess = res.Session
	}

	g.config.Headers.Apply(w.Header())

	// Cookies refreshed during the lookup go out on every branch. Dropping
	// them on the redirect path silently signs the user out next request.
	if res != nil {
		for _, cookie := range res.RefreshedCookies {
			http.SetCookie(w, cookie)
		}
	}

	switch {
	case route == RouteProtected && sess == nil:
		target := g.config.AuthEntryPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
		g.record(span, decisionRedirectAuth, route)
		http.Redirect(w, r, target, http.StatusFound)

	case route == RouteAuthOnly && sess != nil:
		g.record(span, decisionRedirectHome, route)
		http.Redirect(w, r, g.config.AppHomePath, http.StatusFound)

	default:
		g.record(span, decisionPassThrough, route)
		if sess != nil {
			r = r.WithContext(WithSession(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
	}
}

// record stamps the settled decision on both the span and the metrics.
func (g *Guard) record(span trace.Span, decision string, route RouteClass) {
	span.SetAttributes(attribute.String("guard.decision", decision))
	g.config.Metrics.RecordDecision(decision, route.String())
}

// failsOpen reports whether a session lookup failure should degrade to
// pass-through instead of unauthenticated routing.
func (g *Guard) failsOpen(err error) bool {
	if session.IsRateLimited(err) {
		return true
	}
	return g.config.FailOpenOnTimeout && session.IsTimeout(err)
}

func writeRateLimitHeaders(h http.Header, d *ratelimit.Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", d.ResetAt.UTC().Format(time.RFC3339))
}
