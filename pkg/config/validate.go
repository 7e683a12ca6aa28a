package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.http_port").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validatePassthrough(&cfg.Passthrough)...)
	errs = append(errs, validatePort("control.udp_port", cfg.Control.UDPPort)...)
	errs = append(errs, validateTranscript(&cfg.Transcript)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(cfg.Host) == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.host",
			Message: "upstream host is required",
		})
	}
	// Upstream ports must be dialable, so 0 is rejected here.
	for _, p := range []struct {
		field string
		port  int
	}{
		{"upstream.http_port", cfg.HTTPPort},
		{"upstream.tcp_port", cfg.TCPPort},
	} {
		if p.port < 1 || p.port > 65535 {
			errs = append(errs, FieldError{
				Field:   p.field,
				Message: fmt.Sprintf("port must be between 1 and 65535, got %d", p.port),
			})
		}
	}
	errs = append(errs, validatePort("upstream.https_port", cfg.HTTPSPort)...)
	errs = append(errs, validatePort("upstream.tcp_secure_port", cfg.TCPSecurePort)...)

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.timeout",
			Message: "timeout must be non-negative",
		})
	}

	return errs
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validatePort("proxy.http_port", cfg.HTTPPort)...)
	errs = append(errs, validatePort("proxy.https_port", cfg.HTTPSPort)...)

	if cfg.Workers < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.workers",
			Message: "workers must be non-negative (0 selects the CPU based default)",
		})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_body_bytes",
			Message: "max body bytes must be positive",
		})
	}

	switch strings.ToLower(cfg.InitialMode) {
	case "record", "replay":
	default:
		errs = append(errs, FieldError{
			Field:   "proxy.initial_mode",
			Message: fmt.Sprintf("invalid mode %q (must be record or replay)", cfg.InitialMode),
		})
	}

	if cfg.ReadHeaderTimeout < 0 || cfg.IdleTimeout < 0 || cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy",
			Message: "timeouts must be non-negative",
		})
	}

	return errs
}

func validatePassthrough(cfg *PassthroughConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validatePort("passthrough.tcp_port", cfg.TCPPort)...)
	errs = append(errs, validatePort("passthrough.tcp_secure_port", cfg.TCPSecurePort)...)

	if cfg.DialTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "passthrough.dial_timeout",
			Message: "dial timeout must be non-negative",
		})
	}

	return errs
}

func validateTranscript(cfg *TranscriptConfig) []FieldError {
	switch cfg.Backend {
	case "memory", "sqlite":
		return nil
	default:
		return []FieldError{{
			Field:   "transcript.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory or sqlite)", cfg.Backend),
		}}
	}
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if !isValidLevel(strings.ToLower(cfg.Logging.Level)) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be trace, debug, info, warn, error or off)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Admin.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Admin.Listen); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.admin.listen",
				Message: fmt.Sprintf("invalid address %q: %v", cfg.Admin.Listen, err),
			})
		}
	}

	if cfg.Report.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Report.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.report.schedule",
				Message: fmt.Sprintf("invalid schedule %q: %v", cfg.Report.Schedule, err),
			})
		}
	}

	return errs
}

// validatePort accepts 0 (ephemeral) through 65535.
func validatePort(field string, port int) []FieldError {
	if port < 0 || port > 65535 {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("port must be between 0 and 65535, got %d", port),
		}}
	}
	return nil
}

func isValidLevel(level string) bool {
	switch level {
	case "trace", "debug", "info", "warn", "warning", "error", "off":
		return true
	default:
		return false
	}
}
