package server

import (
	"log/slog"
	"net/http"

	"mercator-hq/chproxy/pkg/config"
	"mercator-hq/chproxy/pkg/telemetry/health"
	"mercator-hq/chproxy/pkg/telemetry/metrics"
)

// BuildInfo identifies the running binary on the version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// NewAdmin builds the admin server exposing Prometheus metrics and the
// health endpoints on cfg.Telemetry.Admin.Listen.
func NewAdmin(cfg *config.Config, collector *metrics.Collector, checker *health.Checker, build BuildInfo, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	if cfg.Telemetry.Metrics.Enabled && collector != nil {
		mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
	}
	health.Mount(mux, checker, build.Version, build.Commit, build.BuildTime)

	return New("admin", cfg.Telemetry.Admin.Listen, mux, Options{
		ReadHeaderTimeout: cfg.Proxy.ReadHeaderTimeout,
		IdleTimeout:       cfg.Proxy.IdleTimeout,
		ShutdownTimeout:   cfg.Proxy.ShutdownTimeout,
		Logger:            logger,
	})
}
