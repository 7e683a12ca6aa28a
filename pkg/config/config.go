package config

import (
	"net"
	"runtime"
	"strconv"
	"time"
)

// Config is the root configuration structure for chproxy.
type Config struct {
	// Upstream describes the ClickHouse server being proxied.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Proxy contains the HTTP intercept server configuration.
	Proxy ProxyConfig `yaml:"proxy"`

	// Passthrough contains the raw TCP forwarder configuration.
	Passthrough PassthroughConfig `yaml:"passthrough"`

	// Control contains the UDP control plane configuration.
	Control ControlConfig `yaml:"control"`

	// Transcript selects the transcript storage backend.
	Transcript TranscriptConfig `yaml:"transcript"`

	// Telemetry contains logging, metrics, admin endpoint and report settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// UpstreamConfig describes the remote server.
type UpstreamConfig struct {
	// Host is the upstream host name or IP address.
	// Default: "localhost"
	Host string `yaml:"host"`

	// HTTPPort is the upstream HTTP interface port.
	// Default: 8123
	HTTPPort int `yaml:"http_port"`

	// TCPPort is the upstream native protocol port.
	// Default: 9000
	TCPPort int `yaml:"tcp_port"`

	// HTTPSPort is reserved. It is accepted and ignored.
	// Default: 8443
	HTTPSPort int `yaml:"https_port"`

	// TCPSecurePort is reserved. It is accepted and ignored.
	// Default: 9440
	TCPSecurePort int `yaml:"tcp_secure_port"`

	// Timeout bounds a whole upstream HTTP exchange. Zero means no timeout.
	// Default: 0
	Timeout time.Duration `yaml:"timeout"`
}

// ProxyConfig contains configuration for the HTTP intercept server.
type ProxyConfig struct {
	// HTTPPort is the local port the intercept server binds on 0.0.0.0.
	// Default: 8123
	HTTPPort int `yaml:"http_port"`

	// HTTPSPort is reserved. It is accepted and ignored.
	// Default: 8443
	HTTPSPort int `yaml:"https_port"`

	// Workers bounds the number of requests handled at once.
	// Zero selects max(1, NumCPU/2).
	// Default: 0
	Workers int `yaml:"workers"`

	// MaxBodyBytes is the largest request body that will be buffered.
	// Default: 268435456 (256MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// InitialMode is the mode at startup: "record" or "replay".
	// Default: "record"
	InitialMode string `yaml:"initial_mode"`

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 30s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// IdleTimeout is how long keep-alive connections stay open.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is how long in-flight requests get to finish on shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PassthroughConfig contains configuration for the TCP forwarder.
type PassthroughConfig struct {
	// TCPPort is the local port the forwarder binds on 0.0.0.0.
	// Default: 9000
	TCPPort int `yaml:"tcp_port"`

	// TCPSecurePort is reserved. It is accepted and ignored.
	// Default: 9440
	TCPSecurePort int `yaml:"tcp_secure_port"`

	// DialTimeout bounds connecting to the upstream TCP port.
	// Default: 10s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ControlConfig contains configuration for the UDP control plane.
type ControlConfig struct {
	// UDPPort is the local port the control socket binds on localhost.
	// Default: 8766
	UDPPort int `yaml:"udp_port"`
}

// TranscriptConfig selects the transcript backend.
type TranscriptConfig struct {
	// Backend is "memory" or "sqlite". Both keep the transcript in process memory.
	// Default: "memory"
	Backend string `yaml:"backend"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Admin contains the admin HTTP listener configuration.
	Admin AdminConfig `yaml:"admin"`

	// Report contains the scheduled transcript report configuration.
	Report ReportConfig `yaml:"report"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error" (plus "trace" and "off")
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint on the admin listener.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "chproxy"
	Namespace string `yaml:"namespace"`

	// Subsystem is the optional metric subsystem name.
	// Default: ""
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request duration (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// AdminConfig contains the admin listener configuration.
type AdminConfig struct {
	// Listen is the address for /metrics, /health, /ready and /version.
	// Empty disables the admin listener.
	// Default: ""
	Listen string `yaml:"listen"`
}

// ReportConfig contains the transcript report configuration.
type ReportConfig struct {
	// Schedule is a cron expression (robfig/cron syntax, descriptors allowed).
	// Empty disables the report.
	// Default: "@every 15m"
	Schedule string `yaml:"schedule"`
}

// HTTPListenAddress returns the address the intercept server binds.
func (c *Config) HTTPListenAddress() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Proxy.HTTPPort))
}

// TCPListenAddress returns the address the pass-through binds.
func (c *Config) TCPListenAddress() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Passthrough.TCPPort))
}

// ControlListenAddress returns the address the control socket binds.
func (c *Config) ControlListenAddress() string {
	return net.JoinHostPort("localhost", strconv.Itoa(c.Control.UDPPort))
}

// UpstreamHTTPURL returns the base URL requests are forwarded to.
func (c *Config) UpstreamHTTPURL() string {
	return "http://" + net.JoinHostPort(c.Upstream.Host, strconv.Itoa(c.Upstream.HTTPPort))
}

// UpstreamTCPAddress returns the address pass-through connections dial.
func (c *Config) UpstreamTCPAddress() string {
	return net.JoinHostPort(c.Upstream.Host, strconv.Itoa(c.Upstream.TCPPort))
}

// EffectiveWorkers resolves Proxy.Workers, replacing zero with max(1, NumCPU/2).
func (c *Config) EffectiveWorkers() int {
	if c.Proxy.Workers > 0 {
		return c.Proxy.Workers
	}
	return DefaultWorkers()
}

// DefaultWorkers returns max(1, NumCPU/2).
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()/2)
}
