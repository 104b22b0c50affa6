// Package proxy forwards gated requests to the downstream application.
package proxy

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"contentgate/internal/handler/http/respond"
)

// New creates a reverse proxy handler that forwards requests to rawTarget.
// Transport failures toward the downstream surface as 502 with a generic
// body; the underlying error goes to the log only.
func New(rawTarget string, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(rawTarget)
	if err != nil {
		return nil, fmt.Errorf("parse downstream URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("downstream URL %q must include scheme and host", rawTarget)
	}

	p := httputil.NewSingleHostReverseProxy(target)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("downstream request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		respond.Error(w, http.StatusBadGateway, errors.New("downstream unavailable"))
	}
	return p, nil
}
