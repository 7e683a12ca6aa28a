package server

import (
	"log/slog"

	"mercator-hq/chproxy/pkg/config"
	"mercator-hq/chproxy/pkg/proxy"
	"mercator-hq/chproxy/pkg/proxy/middleware"
)

// NewIntercept builds the HTTP intercept server: every method and path goes
// to handler behind recovery, request ID and worker pool middleware.
func NewIntercept(cfg *config.Config, handler *proxy.Handler, logger *slog.Logger) *Server {
	chain := middleware.Chain(handler,
		middleware.RecoveryMiddleware,
		middleware.RequestIDMiddleware,
		middleware.WorkerPoolMiddleware(cfg.EffectiveWorkers()),
	)

	return New("http", cfg.HTTPListenAddress(), chain, Options{
		ReadHeaderTimeout: cfg.Proxy.ReadHeaderTimeout,
		IdleTimeout:       cfg.Proxy.IdleTimeout,
		ShutdownTimeout:   cfg.Proxy.ShutdownTimeout,
		Logger:            logger,
	})
}
