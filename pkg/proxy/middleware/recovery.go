package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/chproxy/pkg/proxy"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// Internal Server Error with a JSON error body. The panic is logged with its
// stack trace; nothing internal reaches the client.
//
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			proxy.WriteErrorResponse(w, http.StatusInternalServerError, &proxy.ErrorResponse{
				Error: proxy.ErrorDetail{
					Message: "An internal error occurred.",
					Type:    proxy.ErrorTypeServer,
				},
			})
		}()

		next.ServeHTTP(w, r)
	})
}
