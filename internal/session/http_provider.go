package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"contentgate/internal/observability/tracing"
	"contentgate/internal/resilience/circuitbreaker"
)

const maxSessionBodyBytes = 64 * 1024

// HTTPProviderConfig configures the HTTP session provider.
type HTTPProviderConfig struct {
	// BaseURL is the identity provider's base URL, e.g. "https://id.internal:9443".
	BaseURL string

	// SessionPath is the path of the current-session endpoint.
	SessionPath string

	// Timeout bounds a single session lookup end to end.
	Timeout time.Duration

	// RequestsPerSecond throttles our own call volume toward the provider.
	RequestsPerSecond float64

	// Burst is the throttle's burst allowance.
	Burst int
}

// ApplyDefaults fills zero-valued fields with sane defaults.
func (c *HTTPProviderConfig) ApplyDefaults() {
	if c.SessionPath == "" {
		c.SessionPath = "/internal/v1/session"
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 50
	}
	if c.Burst <= 0 {
		c.Burst = 100
	}
}

// Validate checks the configuration for required fields.
func (c *HTTPProviderConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("session provider base URL is required")
	}
	return nil
}

// HTTPProvider resolves sessions by calling the identity provider's
// current-session endpoint with the incoming request's cookies.
//
// Three layers of protection sit in front of the network call:
//   - a token bucket throttle caps our own request rate toward the provider
//   - a per-lookup timeout bounds latency added to hot request paths
//   - a circuit breaker fences the provider off during sustained failure
type HTTPProvider struct {
	client   *http.Client
	baseURL  string
	path     string
	timeout  time.Duration
	throttle *rate.Limiter
	breaker  *circuitbreaker.CircuitBreaker
	logger   *slog.Logger
	metrics  Metrics
}

// NewHTTPProvider creates an HTTPProvider from the given configuration.
// A nil metrics recorder falls back to NoOpMetrics.
func NewHTTPProvider(cfg HTTPProviderConfig, logger *slog.Logger, metrics Metrics) *HTTPProvider {
	cfg.ApplyDefaults()
	if metrics == nil {
		metrics = NewNoOpMetrics()
	}
	return &HTTPProvider{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  cfg.BaseURL,
		path:     cfg.SessionPath,
		timeout:  cfg.Timeout,
		throttle: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker:  circuitbreaker.New(circuitbreaker.SessionProviderConfig()),
		logger:   logger,
		metrics:  metrics,
	}
}

// fetchOutcome lets rate-limited lookups pass through the breaker as
// successes. Upstream throttling is an expected operating condition and
// must not trip the breaker into reporting the provider as down.
type fetchOutcome struct {
	result *Result
	err    error
}

// GetSession resolves the session for the incoming request.
//
// A nil Session inside a nil-error Result means the caller is signed out.
// Failures come back as *Error with a Kind the guard can branch on.
func (p *HTTPProvider) GetSession(ctx context.Context, r *http.Request) (*Result, error) {
	const op = "session.HTTPProvider.GetSession"
	start := time.Now()

	ctx, span := tracing.GetTracer().Start(ctx, "session.GetSession")
	defer span.End()

	if !p.throttle.Allow() {
		p.metrics.ObserveFetch(KindRateLimited.String(), time.Since(start))
		return nil, &Error{Kind: KindRateLimited, Op: op, Err: errors.New("client-side throttle exhausted")}
	}

	v, err := p.breaker.Execute(func() (interface{}, error) {
		res, ferr := p.fetch(ctx, r)
		if ferr != nil && !IsRateLimited(ferr) {
			return nil, ferr
		}
		return fetchOutcome{result: res, err: ferr}, nil
	})
	if err != nil {
		perr := p.classify(op, err)
		span.SetAttributes(attribute.String("session.outcome", perr.Kind.String()))
		p.metrics.ObserveFetch(perr.Kind.String(), time.Since(start))
		p.logger.Warn("session lookup failed",
			slog.String("kind", perr.Kind.String()),
			slog.Any("error", perr.Err),
		)
		return nil, perr
	}

	outcome := v.(fetchOutcome)
	if outcome.err != nil {
		p.metrics.ObserveFetch(KindRateLimited.String(), time.Since(start))
		return nil, outcome.err
	}

	label := "miss"
	if outcome.result.Session != nil {
		label = "hit"
	}
	span.SetAttributes(attribute.String("session.outcome", label))
	p.metrics.ObserveFetch(label, time.Since(start))
	return outcome.result, nil
}

// sessionPayload is the provider's wire format for the session endpoint.
type sessionPayload struct {
	SessionID string `json:"session_id"`
	User      User   `json:"user"`
	ExpiresAt int64  `json:"expires_at_epoch_ms"`
}

func (p *HTTPProvider) fetch(ctx context.Context, r *http.Request) (*Result, error) {
	const op = "session.HTTPProvider.fetch"

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+p.path, nil)
	if err != nil {
		return nil, &Error{Kind: KindProtocol, Op: op, Err: err}
	}
	// The provider authenticates the lookup from the caller's own cookies.
	if cookies := r.Header.Get("Cookie"); cookies != "" {
		req.Header.Set("Cookie", cookies)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: timeoutOrUnavailable(err), Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var payload sessionPayload
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxSessionBodyBytes)).Decode(&payload); err != nil {
			return nil, &Error{Kind: KindProtocol, Op: op, Err: err}
		}
		if payload.SessionID == "" || payload.User.ID == "" {
			return nil, &Error{Kind: KindProtocol, Op: op, Err: errors.New("session payload missing required fields")}
		}
		return &Result{
			Session: &Session{
				ID:        payload.SessionID,
				User:      payload.User,
				ExpiresAt: time.UnixMilli(payload.ExpiresAt),
			},
			RefreshedCookies: resp.Cookies(),
		}, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound:
		// Signed out is a normal outcome, not a failure.
		return &Result{RefreshedCookies: resp.Cookies()}, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindRateLimited, Op: op, Err: fmt.Errorf("provider returned status %d", resp.StatusCode)}

	case resp.StatusCode >= 500:
		return nil, &Error{Kind: KindUnavailable, Op: op, Err: fmt.Errorf("provider returned status %d", resp.StatusCode)}

	default:
		return nil, &Error{Kind: KindProtocol, Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

// classify folds breaker and transport errors into a typed *Error.
func (p *HTTPProvider) classify(op string, err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Kind: KindUnavailable, Op: op, Err: err}
	}
	return &Error{Kind: timeoutOrUnavailable(err), Op: op, Err: err}
}

func timeoutOrUnavailable(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	return KindUnavailable
}
