package config

import "time"

// Default values for configuration fields.
const (
	// Upstream defaults
	DefaultUpstreamHost          = "localhost"
	DefaultUpstreamHTTPPort      = 8123
	DefaultUpstreamTCPPort       = 9000
	DefaultUpstreamHTTPSPort     = 8443
	DefaultUpstreamTCPSecurePort = 9440

	// Proxy defaults
	DefaultHTTPPort          = 8123
	DefaultHTTPSPort         = 8443
	DefaultMaxBodyBytes      = int64(256 << 20)
	DefaultInitialMode       = "record"
	DefaultReadHeaderTimeout = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second

	// Passthrough defaults
	DefaultTCPPort       = 9000
	DefaultTCPSecurePort = 9440
	DefaultDialTimeout   = 10 * time.Second

	// Control defaults
	DefaultUDPControlPort = 8766

	// Transcript defaults
	DefaultTranscriptBackend = "memory"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "chproxy"
	DefaultReportSchedule   = "@every 15m"
)

// DefaultRequestDurationBuckets covers replay hits (sub-millisecond) through
// slow upstream queries.
var DefaultRequestDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// Default returns a configuration with every field at its default value.
// Loading starts from this value so keys absent from the file keep their
// defaults while explicit zero values (port 0, enabled: false) are preserved.
func Default() *Config {
	cfg := &Config{
		Upstream: UpstreamConfig{
			Host:          DefaultUpstreamHost,
			HTTPPort:      DefaultUpstreamHTTPPort,
			TCPPort:       DefaultUpstreamTCPPort,
			HTTPSPort:     DefaultUpstreamHTTPSPort,
			TCPSecurePort: DefaultUpstreamTCPSecurePort,
		},
		Proxy: ProxyConfig{
			HTTPPort:          DefaultHTTPPort,
			HTTPSPort:         DefaultHTTPSPort,
			MaxBodyBytes:      DefaultMaxBodyBytes,
			InitialMode:       DefaultInitialMode,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			IdleTimeout:       DefaultIdleTimeout,
			ShutdownTimeout:   DefaultShutdownTimeout,
		},
		Passthrough: PassthroughConfig{
			TCPPort:       DefaultTCPPort,
			TCPSecurePort: DefaultTCPSecurePort,
			DialTimeout:   DefaultDialTimeout,
		},
		Control: ControlConfig{
			UDPPort: DefaultUDPControlPort,
		},
		Transcript: TranscriptConfig{
			Backend: DefaultTranscriptBackend,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:  DefaultLoggingLevel,
				Format: DefaultLoggingFormat,
			},
			Metrics: MetricsConfig{
				Enabled:   DefaultMetricsEnabled,
				Path:      DefaultMetricsPath,
				Namespace: DefaultMetricsNamespace,
			},
			Report: ReportConfig{
				Schedule: DefaultReportSchedule,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills fields that must never be empty.
// It is idempotent and safe to call multiple times. Fields where the zero
// value is meaningful (ports, Workers, Admin.Listen, Report.Schedule,
// Metrics.Enabled) are left alone.
func ApplyDefaults(cfg *Config) {
	if cfg.Upstream.Host == "" {
		cfg.Upstream.Host = DefaultUpstreamHost
	}

	if cfg.Proxy.MaxBodyBytes == 0 {
		cfg.Proxy.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Proxy.InitialMode == "" {
		cfg.Proxy.InitialMode = DefaultInitialMode
	}
	if cfg.Proxy.ReadHeaderTimeout == 0 {
		cfg.Proxy.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Passthrough.DialTimeout == 0 {
		cfg.Passthrough.DialTimeout = DefaultDialTimeout
	}

	if cfg.Transcript.Backend == "" {
		cfg.Transcript.Backend = DefaultTranscriptBackend
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}
}
