// Package config provides configuration management for chproxy.
//
// Configuration is assembled in layers, later layers overriding earlier ones:
//
//  1. Default values (defaults.go)
//  2. Values from an optional YAML file
//  3. Environment variable overrides
//  4. Command-line flags the user actually set (applied by cmd/chproxy)
//
// Validation runs after every layer that can introduce bad values and
// collects all problems into a single ValidationError.
//
// # Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("chproxy.yaml")
//
// An empty path skips the file and yields defaults plus environment.
//
// # Environment Variable Overrides
//
// Variables follow CHPROXY_SECTION_FIELD:
//
//   - CHPROXY_UPSTREAM_HOST overrides upstream.host
//   - CHPROXY_PROXY_WORKERS overrides proxy.workers
//   - CHPROXY_TRANSCRIPT_BACKEND overrides transcript.backend
//   - CHPROXY_LOG_LEVEL overrides telemetry.logging.level
//
// RUST_LOG is also read for the log level, in env_logger filter syntax
// ("debug", "chproxy=debug"). CHPROXY_LOG_LEVEL takes precedence over it.
//
// # Hot Reload
//
// Watcher observes the configuration file with fsnotify. Only the log level
// is applied live; other changes are logged and take effect on restart.
//
//	w, _ := config.NewWatcher(path, 0, logger)
//	go w.Watch(ctx, func() error {
//	    cfg, err := config.ReloadConfig(path)
//	    ...
//	})
//
// # Example File
//
//	upstream:
//	  host: clickhouse.internal
//	  http_port: 8123
//	  tcp_port: 9000
//	proxy:
//	  http_port: 8123
//	  workers: 4
//	  initial_mode: record
//	control:
//	  udp_port: 8766
//	transcript:
//	  backend: sqlite
//	telemetry:
//	  logging:
//	    level: debug
//	    format: text
//	  admin:
//	    listen: 127.0.0.1:9363
//	  report:
//	    schedule: "@every 5m"
package config
