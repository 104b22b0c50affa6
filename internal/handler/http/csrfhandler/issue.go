// Package csrfhandler exposes the CSRF token lifecycle over HTTP: an
// authenticated-only issue endpoint and a middleware that demands a valid
// token on every state-mutating request.
package csrfhandler

import (
	"errors"
	"net/http"

	"contentgate/internal/handler/http/middleware"
	"contentgate/internal/handler/http/respond"
	"contentgate/pkg/csrf"
)

// TokenHeader is the request header mutating endpoints present tokens in.
const TokenHeader = "X-CSRF-Token"

// issueResponse is the issue endpoint's response body.
type issueResponse struct {
	Token           string `json:"token"`
	ExpiresAtEpochMs int64  `json:"expires_at_epoch_ms"`
}

// Issue returns the token retrieval endpoint. Only authenticated callers
// may obtain a token; everyone else gets 401. Each call replaces the
// session's previous token.
func Issue(manager *csrf.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, errors.New("authentication required"))
			return
		}

		token, expiresAt := manager.Issue(sess.ID)
		respond.JSON(w, http.StatusOK, issueResponse{
			Token:            token,
			ExpiresAtEpochMs: expiresAt.UnixMilli(),
		})
	})
}
