package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "CHPROXY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// Keys absent from the file keep their defaults. An empty path yields the
// defaults. The result is validated but environment overrides are not
// applied; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CHPROXY_SECTION_FIELD (e.g., CHPROXY_UPSTREAM_HOST) and always
// take precedence over the file.
//
// The loading sequence is:
// 1. Start from defaults
// 2. Merge the YAML file
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric values are reported as a ValidationError naming the variable.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError

	str := func(name string, dst *string) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			*dst = val
		}
	}
	num := func(name string, dst *int) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid integer %q", val)})
				return
			}
			*dst = i
		}
	}
	dur := func(name string, dst *time.Duration) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid duration %q", val)})
				return
			}
			*dst = d
		}
	}

	// Upstream overrides
	str("UPSTREAM_HOST", &cfg.Upstream.Host)
	num("UPSTREAM_HTTP_PORT", &cfg.Upstream.HTTPPort)
	num("UPSTREAM_TCP_PORT", &cfg.Upstream.TCPPort)
	dur("UPSTREAM_TIMEOUT", &cfg.Upstream.Timeout)

	// Proxy overrides
	num("PROXY_HTTP_PORT", &cfg.Proxy.HTTPPort)
	num("PROXY_WORKERS", &cfg.Proxy.Workers)
	str("PROXY_INITIAL_MODE", &cfg.Proxy.InitialMode)
	dur("PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)
	if val := os.Getenv(EnvPrefix + "PROXY_MAX_BODY_BYTES"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Proxy.MaxBodyBytes = n
		} else {
			errs = append(errs, FieldError{Field: EnvPrefix + "PROXY_MAX_BODY_BYTES", Message: fmt.Sprintf("invalid integer %q", val)})
		}
	}

	// Passthrough and control overrides
	num("PASSTHROUGH_TCP_PORT", &cfg.Passthrough.TCPPort)
	dur("PASSTHROUGH_DIAL_TIMEOUT", &cfg.Passthrough.DialTimeout)
	num("CONTROL_UDP_PORT", &cfg.Control.UDPPort)

	// Transcript overrides
	str("TRANSCRIPT_BACKEND", &cfg.Transcript.Backend)

	// Telemetry overrides. RUST_LOG is honoured for compatibility with
	// existing deployments; CHPROXY_LOG_LEVEL wins when both are set.
	if val := os.Getenv("RUST_LOG"); val != "" {
		if level := RustLogLevel(val); level != "" {
			cfg.Telemetry.Logging.Level = level
		}
	}
	str("LOG_LEVEL", &cfg.Telemetry.Logging.Level)
	str("LOG_FORMAT", &cfg.Telemetry.Logging.Format)
	str("ADMIN_LISTEN", &cfg.Telemetry.Admin.Listen)
	str("REPORT_SCHEDULE", &cfg.Telemetry.Report.Schedule)
	if val := os.Getenv(EnvPrefix + "METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		} else {
			errs = append(errs, FieldError{Field: EnvPrefix + "METRICS_ENABLED", Message: fmt.Sprintf("invalid boolean %q", val)})
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// RustLogLevel extracts a level from an env_logger style filter such as
// "debug", "chproxy=debug" or "warn,chproxy=trace". A bare level wins over
// target directives; otherwise the first target directive is used. It
// returns "" when no directive names a known level.
func RustLogLevel(filter string) string {
	var targeted string
	for _, directive := range strings.Split(filter, ",") {
		directive = strings.TrimSpace(directive)
		if directive == "" {
			continue
		}

		level := directive
		hasTarget := false
		if i := strings.LastIndexByte(directive, '='); i >= 0 {
			level = directive[i+1:]
			hasTarget = true
		}
		level = strings.ToLower(strings.TrimSpace(level))
		if !isValidLevel(level) {
			continue
		}

		if !hasTarget {
			return level
		}
		if targeted == "" {
			targeted = level
		}
	}
	return targeted
}
