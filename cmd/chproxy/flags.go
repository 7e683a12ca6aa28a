package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mercator-hq/chproxy/pkg/cli"
	"mercator-hq/chproxy/pkg/config"
)

// serveFlags holds the listener and upstream flags. The names keep the
// underscore spelling existing scripts use.
var serveFlags struct {
	server string

	httpPortLocal      int
	httpPortClickhouse int
	tcpPortLocal       int
	tcpPortClickhouse  int
	udpControlPort     int

	httpsPortLocal          int
	httpsPortClickhouse     int
	tcpPortSecureLocal      int
	tcpPortSecureClickhouse int

	logLevel    string
	adminListen string
	initialMode string
	backend     string
}

// addServeFlags registers the serve flags on cmd. Root and serve share the
// same variables so "chproxy" and "chproxy serve" behave identically.
func addServeFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&serveFlags.server, "server", "s", config.DefaultUpstreamHost, "upstream ClickHouse host")
	fs.IntVar(&serveFlags.httpPortLocal, "http_port_local", config.DefaultHTTPPort, "local HTTP port")
	fs.IntVar(&serveFlags.httpPortClickhouse, "http_port_clickhouse", config.DefaultUpstreamHTTPPort, "upstream HTTP port")
	fs.IntVar(&serveFlags.tcpPortLocal, "tcp_port_local", config.DefaultTCPPort, "local native TCP port")
	fs.IntVar(&serveFlags.tcpPortClickhouse, "tcp_port_clickhouse", config.DefaultUpstreamTCPPort, "upstream native TCP port")
	fs.IntVar(&serveFlags.udpControlPort, "udp_control_port", config.DefaultUDPControlPort, "local UDP control port")

	fs.IntVar(&serveFlags.httpsPortLocal, "https_port_local", config.DefaultHTTPSPort, "reserved, accepted and ignored")
	fs.IntVar(&serveFlags.httpsPortClickhouse, "https_port_clickhouse", config.DefaultUpstreamHTTPSPort, "reserved, accepted and ignored")
	fs.IntVar(&serveFlags.tcpPortSecureLocal, "tcp_port_secure_local", config.DefaultTCPSecurePort, "reserved, accepted and ignored")
	fs.IntVar(&serveFlags.tcpPortSecureClickhouse, "tcp_port_secure_clickhouse", config.DefaultUpstreamTCPSecurePort, "reserved, accepted and ignored")

	fs.StringVar(&serveFlags.logLevel, "log-level", "", "override log level (trace, debug, info, warn, error, off)")
	fs.StringVar(&serveFlags.adminListen, "admin_listen", "", "admin address for /metrics and health endpoints (empty disables)")
	fs.StringVar(&serveFlags.initialMode, "initial-mode", config.DefaultInitialMode, "mode at startup (record or replay)")
	fs.StringVar(&serveFlags.backend, "transcript-backend", config.DefaultTranscriptBackend, "transcript storage backend (memory or sqlite)")
}

// applyFlagOverrides copies every flag the user set explicitly into cfg.
// Flags left at their defaults do not override the file or environment.
func applyFlagOverrides(fs *pflag.FlagSet, cfg *config.Config) {
	overrides := map[string]func(){
		"server":                     func() { cfg.Upstream.Host = serveFlags.server },
		"http_port_local":            func() { cfg.Proxy.HTTPPort = serveFlags.httpPortLocal },
		"http_port_clickhouse":       func() { cfg.Upstream.HTTPPort = serveFlags.httpPortClickhouse },
		"tcp_port_local":             func() { cfg.Passthrough.TCPPort = serveFlags.tcpPortLocal },
		"tcp_port_clickhouse":        func() { cfg.Upstream.TCPPort = serveFlags.tcpPortClickhouse },
		"udp_control_port":           func() { cfg.Control.UDPPort = serveFlags.udpControlPort },
		"https_port_local":           func() { cfg.Proxy.HTTPSPort = serveFlags.httpsPortLocal },
		"https_port_clickhouse":      func() { cfg.Upstream.HTTPSPort = serveFlags.httpsPortClickhouse },
		"tcp_port_secure_local":      func() { cfg.Passthrough.TCPSecurePort = serveFlags.tcpPortSecureLocal },
		"tcp_port_secure_clickhouse": func() { cfg.Upstream.TCPSecurePort = serveFlags.tcpPortSecureClickhouse },
		"log-level":                  func() { cfg.Telemetry.Logging.Level = serveFlags.logLevel },
		"admin_listen":               func() { cfg.Telemetry.Admin.Listen = serveFlags.adminListen },
		"initial-mode":               func() { cfg.Proxy.InitialMode = serveFlags.initialMode },
		"transcript-backend":         func() { cfg.Transcript.Backend = serveFlags.backend },
	}

	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply()
		}
	})
}

// configPath resolves --config. The default file is optional; an explicitly
// named file must exist.
func configPath(fs *pflag.FlagSet) (string, error) {
	if cfgFile == "" {
		return "", nil
	}
	if config.FileExists(cfgFile) {
		return cfgFile, nil
	}
	if fs.Changed("config") {
		return "", cli.NewConfigError("config", fmt.Sprintf("config file %q not found", cfgFile))
	}
	return "", nil
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then CHPROXY_* and RUST_LOG, then explicitly set flags.
func loadConfig(fs *pflag.FlagSet) (*config.Config, string, error) {
	path, err := configPath(fs)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, "", cli.NewConfigError("", err.Error())
	}

	applyFlagOverrides(fs, cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, "", cli.NewConfigError("flags", err.Error())
	}

	config.SetConfig(cfg)
	return cfg, path, nil
}
