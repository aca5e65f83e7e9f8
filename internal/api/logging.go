// Package api serves the widget and category resources over Huma.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// LogDBError logs a storage failure that is about to surface as a 500.
func LogDBError(ctx context.Context, logger *slog.Logger, operation string, err error) {
	logger.ErrorContext(ctx, "database error", "operation", operation, "error", err)
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For first (for proxied requests), then falls back to RemoteAddr.
func getClientIP(r *http.Request) string {
	if r == nil {
		return "unknown"
	}

	// Format: "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		client, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(client)
	}

	// nginx convention
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
