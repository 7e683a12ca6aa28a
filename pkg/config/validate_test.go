package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		wantFields []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:   "ephemeral local ports are valid",
			mutate: func(c *Config) { c.Proxy.HTTPPort, c.Passthrough.TCPPort, c.Control.UDPPort = 0, 0, 0 },
		},
		{
			name:       "empty upstream host",
			mutate:     func(c *Config) { c.Upstream.Host = " " },
			wantFields: []string{"upstream.host"},
		},
		{
			name:       "upstream port zero",
			mutate:     func(c *Config) { c.Upstream.HTTPPort = 0 },
			wantFields: []string{"upstream.http_port"},
		},
		{
			name:       "local port out of range",
			mutate:     func(c *Config) { c.Proxy.HTTPPort = 70000; c.Control.UDPPort = -1 },
			wantFields: []string{"proxy.http_port", "control.udp_port"},
		},
		{
			name:       "negative workers",
			mutate:     func(c *Config) { c.Proxy.Workers = -2 },
			wantFields: []string{"proxy.workers"},
		},
		{
			name:       "unknown backend",
			mutate:     func(c *Config) { c.Transcript.Backend = "postgres" },
			wantFields: []string{"transcript.backend"},
		},
		{
			name:       "bad log level and format",
			mutate:     func(c *Config) { c.Telemetry.Logging.Level = "loud"; c.Telemetry.Logging.Format = "xml" },
			wantFields: []string{"telemetry.logging.level", "telemetry.logging.format"},
		},
		{
			name:       "bad admin address",
			mutate:     func(c *Config) { c.Telemetry.Admin.Listen = "nonsense" },
			wantFields: []string{"telemetry.admin.listen"},
		},
		{
			name:       "bad report schedule",
			mutate:     func(c *Config) { c.Telemetry.Report.Schedule = "every now and then" },
			wantFields: []string{"telemetry.report.schedule"},
		},
		{
			name:   "empty report schedule disables report",
			mutate: func(c *Config) { c.Telemetry.Report.Schedule = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}

			var valErr ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(valErr.Errors) != len(tt.wantFields) {
				t.Fatalf("expected %d errors, got %d: %v", len(tt.wantFields), len(valErr.Errors), valErr.Errors)
			}
			for i, field := range tt.wantFields {
				if valErr.Errors[i].Field != field {
					t.Errorf("error %d: expected field %q, got %q", i, field, valErr.Errors[i].Field)
				}
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("unexpected single error message: %q", got)
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	got := multi.Error()
	if !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: worse") {
		t.Errorf("unexpected multi error message: %q", got)
	}

	if got := (ValidationError{}).Error(); got != "configuration validation failed" {
		t.Errorf("unexpected empty error message: %q", got)
	}
}
