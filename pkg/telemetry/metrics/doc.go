// Package metrics provides Prometheus metrics for chproxy.
//
// # Metrics
//
//   - chproxy_http_requests_total{mode,outcome}
//   - chproxy_http_request_duration_seconds{mode}
//   - chproxy_http_body_size_bytes{direction}
//   - chproxy_upstream_errors_total
//   - chproxy_transcript_records
//   - chproxy_mode
//   - chproxy_control_commands_total{command}
//   - chproxy_passthrough_connections_total
//   - chproxy_passthrough_active_connections
//   - chproxy_passthrough_bytes_total{direction}
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordRequest("replay", metrics.OutcomeReplayed, elapsed, 42, 2)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// A nil *Collector is valid and records nothing.
package metrics
