// Package shield provides the HTTP middleware stack of the domfix admin
// surface: security headers, request IDs with a per-request logger, body
// limits and HEAD handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.AdminStack(logger) {
//	    r.Use(mw)
//	}
package shield

import (
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// MaxAdminBody bounds request bodies on the admin surface.
const MaxAdminBody = 64 << 10

// AdminStack returns the middleware applied to every admin route, outermost
// first.
func AdminStack(logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders(AdminHeaders()),
		TraceID(logger),
		MaxBody(MaxAdminBody),
		HeadToGet,
	}
}
