package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "erwpulse/internal/errors"
)

// APIKeyHeader carries the ingest key.
const APIKeyHeader = "X-API-Key"

const apiClientKey ctxKey = "api-client"

// ErrUnauthorized is returned for a missing or unknown API key.
var ErrUnauthorized = apierrors.New(http.StatusUnauthorized, "UNAUTHORIZED", "A valid API key is required")

// APIKeyAuth admits requests whose X-API-Key is one of validKeys, mapping
// key to client name. With no keys configured every request passes.
func APIKeyAuth(logger *slog.Logger, validKeys map[string]string, errorHandler *apierrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			client, ok := lookupKey(validKeys, r.Header.Get(APIKeyHeader))
			if !ok {
				logger.WarnContext(ctx, "rejected API key",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				errorHandler.HandleError(w, r, ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, apiClientKey, client)))
		})
	}
}

// lookupKey compares in constant time against every configured key.
func lookupKey(validKeys map[string]string, presented string) (string, bool) {
	if presented == "" {
		return "", false
	}
	var client string
	found := false
	for key, name := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(presented)) == 1 {
			client, found = name, true
		}
	}
	return client, found
}

// APIClient returns the client name admitted by APIKeyAuth.
func APIClient(ctx context.Context) string {
	client, _ := ctx.Value(apiClientKey).(string)
	return client
}

// AuditLog records who changed data and how it went.
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.InfoContext(ctx, "audit",
				slog.String("client", APIClient(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("request_id", GetRequestID(ctx)),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
