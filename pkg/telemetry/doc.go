// Package telemetry groups chproxy's observability packages.
//
// # Components
//
//   - logging: slog setup with a runtime-adjustable level and request_id,
//     mode and connection_id attributes taken from the context
//   - metrics: Prometheus collectors for HTTP exchanges, the transcript,
//     the control socket and the TCP pass-through
//   - health: liveness, readiness and version endpoints
//   - report: a cron-scheduled transcript summary written to the log
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: cfg.Telemetry.Logging.Level})
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	checker := health.New(health.DefaultCheckTimeout)
//	checker.RegisterCheck("transcript", health.StoreCheck(store))
//
// Metrics and health are served by the admin listener, which is off unless
// telemetry.admin.listen is set.
package telemetry
