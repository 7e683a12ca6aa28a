package middleware

import (
	"net/http"
)

// WorkerPoolMiddleware bounds the number of requests handled at once to size.
// Requests beyond that wait for a free worker, or give up when the client
// goes away. A size below 1 is treated as 1.
//
// Example usage:
//
//	handler = WorkerPoolMiddleware(cfg.Proxy.EffectiveWorkers())(handler)
func WorkerPoolMiddleware(size int) func(http.Handler) http.Handler {
	if size < 1 {
		size = 1
	}
	slots := make(chan struct{}, size)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case slots <- struct{}{}:
			case <-r.Context().Done():
				return
			}
			defer func() { <-slots }()

			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middleware so the first one listed is the outermost.
//
//	Chain(h, RecoveryMiddleware, RequestIDMiddleware) == RecoveryMiddleware(RequestIDMiddleware(h))
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
