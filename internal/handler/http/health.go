// Package http wires the gate's HTTP surface: cross-cutting middleware,
// health reporting, and the handlers that sit in front of the proxy.
package http

import (
	"net/http"

	"contentgate/internal/handler/http/respond"
)

// Health returns a liveness handler.
// The gate holds all of its state in memory, so liveness is simply
// the ability to serve the request.
func Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
