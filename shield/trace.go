package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/domfix/idgen"
	"github.com/hazyhaar/domfix/kit"
)

// TraceID assigns each request an ID (kept from a sane incoming
// X-Request-ID), stores it under kit.RequestIDKey, echoes it in the
// response and attaches a per-request logger.
func TraceID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if !validID(id) {
				id = newID()
			}
			ctx := kit.WithRequestID(r.Context(), id)
			w.Header().Set("X-Request-ID", id)

			reqLog := logger.With("request_id", id, "method", r.Method, "path", r.URL.Path)
			ctx = context.WithValue(ctx, LoggerKey, reqLog)
			reqLog.Debug("shield: request", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger retrieves the per-request logger, or slog.Default().
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

var newID = idgen.Prefixed("req_", idgen.UUIDv7())

func validID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if !(c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
