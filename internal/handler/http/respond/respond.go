// Package respond provides utilities for sending HTTP responses in JSON format.
// Error bodies stay deliberately small so the gate never leaks upstream detail.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are already sent, so all we can do is log.
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Error writes a JSON error response with the given status code and error message.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

// ErrorWithReason writes a JSON error response that carries a stable,
// machine-readable reason code alongside the human-readable message.
// Clients branch on "reason" rather than parsing the message text.
func ErrorWithReason(w http.ResponseWriter, code int, reason, message string) {
	JSON(w, code, map[string]string{
		"error":  message,
		"reason": reason,
	})
}
