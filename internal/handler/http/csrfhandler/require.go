package csrfhandler

import (
	"errors"
	"log/slog"
	"net/http"

	"contentgate/internal/handler/http/middleware"
	"contentgate/internal/handler/http/respond"
	"contentgate/pkg/csrf"
)

// safeMethod reports whether the method cannot mutate state and is
// exempt from token validation.
func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// RequireCSRF returns middleware that validates the X-CSRF-Token header on
// every state-mutating request before it reaches the handler.
//
// Safe methods (GET, HEAD, OPTIONS) pass untouched. Mutations without a
// session are rejected with 401; mutations whose token fails validation
// are rejected with 403 carrying the validation verdict as a machine-
// readable reason code. Only a Valid verdict lets the mutation proceed,
// and validation consumes the token, so each token authorizes exactly
// one mutation.
func RequireCSRF(manager *csrf.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if safeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := middleware.SessionFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, errors.New("authentication required"))
				return
			}

			result := manager.Validate(sess.ID, r.Header.Get(TokenHeader))
			if result != csrf.Valid {
				logger.Info("mutation rejected by csrf validation",
					slog.String("result", result.String()),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				respond.ErrorWithReason(w, http.StatusForbidden, result.String(), "csrf token rejected")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
