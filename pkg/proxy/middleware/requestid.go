package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"mercator-hq/chproxy/pkg/telemetry/logging"
)

// RequestIDMiddleware assigns every request a UUID and stores it in the
// request context, where the logger picks it up. The ID is never added to
// the response, so replayed responses carry only recorded headers.
//
// Example usage:
//
//	handler = RequestIDMiddleware(handler)
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}
