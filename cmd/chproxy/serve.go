package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mercator-hq/chproxy/pkg/cli"
	"mercator-hq/chproxy/pkg/config"
	"mercator-hq/chproxy/pkg/control"
	"mercator-hq/chproxy/pkg/passthrough"
	"mercator-hq/chproxy/pkg/proxy"
	"mercator-hq/chproxy/pkg/server"
	"mercator-hq/chproxy/pkg/state"
	"mercator-hq/chproxy/pkg/supervisor"
	"mercator-hq/chproxy/pkg/telemetry/health"
	"mercator-hq/chproxy/pkg/telemetry/logging"
	"mercator-hq/chproxy/pkg/telemetry/metrics"
	"mercator-hq/chproxy/pkg/telemetry/report"
	"mercator-hq/chproxy/pkg/transcript/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy",
	Long: `Start the HTTP intercept server, the native TCP pass-through and the
UDP control socket.

Configuration is read from defaults, then the config file, then CHPROXY_*
environment variables (and RUST_LOG), then flags that were set explicitly.

Examples:
  # Record against a remote server
  chproxy serve --server clickhouse.internal

  # Non-default local ports
  chproxy serve --http_port_local 18123 --tcp_port_local 19000

  # Expose metrics and health endpoints
  chproxy serve --admin_listen 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

// listener is a component that binds before serving.
type listener interface {
	Listen() error
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Logger)

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	return serve(ctx, cfg, path, cmd.Flags(), logger)
}

// serve wires every component from cfg, binds all sockets and runs until
// a task stops, a signal arrives or ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, path string, flags *pflag.FlagSet, logger *logging.Logger) error {
	store, err := storage.New(cfg.Transcript.Backend)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	st := state.New(store)
	defer st.Close()

	mode, err := state.ParseMode(cfg.Proxy.InitialMode)
	if err != nil {
		return cli.NewConfigError("proxy.initial_mode", err.Error())
	}
	st.SetMode(mode)

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	collector.SetReplayMode(mode == state.ModeReplay)

	handler, err := proxy.NewHandler(st, proxy.Options{
		Upstream:     cfg.UpstreamHTTPURL(),
		Client:       proxy.NewUpstreamClient(cfg.Upstream.Timeout),
		MaxBodyBytes: cfg.Proxy.MaxBodyBytes,
		Metrics:      collector,
		Logger:       logger.Logger,
	})
	if err != nil {
		return cli.NewConfigError("upstream", err.Error())
	}

	intercept := server.NewIntercept(cfg, handler, logger.Logger)
	forwarder := passthrough.New(cfg.TCPListenAddress(), cfg.UpstreamTCPAddress(), passthrough.Options{
		DialTimeout: cfg.Passthrough.DialTimeout,
		Metrics:     collector,
		Logger:      logger.Logger,
	})
	ctl := control.NewServer(cfg.ControlListenAddress(), st, control.Options{
		Metrics: collector,
		Logger:  logger.Logger,
	})

	listeners := []listener{intercept, forwarder, ctl}
	tasks := []supervisor.Task{
		{Name: "http", Run: intercept.Serve},
		{Name: "tcp", Run: forwarder.Serve},
		{Name: "control", Run: ctl.Serve},
	}

	if cfg.Telemetry.Admin.Listen != "" {
		checker := health.New(health.DefaultCheckTimeout)
		checker.RegisterCheck("transcript", health.StoreCheck(store))
		admin := server.NewAdmin(cfg, collector, checker, server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		}, logger.Logger)
		listeners = append(listeners, admin)
		tasks = append(tasks, supervisor.Task{Name: "admin", Run: admin.Serve})
	}

	// Bind everything before serving anything so a port conflict fails fast.
	for _, l := range listeners {
		if err := l.Listen(); err != nil {
			return cli.NewCommandError("serve", err)
		}
	}

	if cfg.Telemetry.Report.Schedule != "" {
		reporter := report.NewScheduler(st, collector, cfg.Telemetry.Report.Schedule, logger.Logger)
		tasks = append(tasks, supervisor.Task{Name: "report", Run: reporter.Run})
	}

	if path != "" {
		watcher, err := config.NewWatcher(path, config.DefaultDebounceInterval, logger.Logger)
		if err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		} else {
			tasks = append(tasks, supervisor.Task{
				Name: "config-watcher",
				Run: func(ctx context.Context) error {
					return watcher.Watch(ctx, reloadFunc(path, flags, logger))
				},
			})
		}
	}

	logger.Info("chproxy started",
		"version", Version,
		"mode", mode.String(),
		"http", cfg.HTTPListenAddress(),
		"tcp", cfg.TCPListenAddress(),
		"control", cfg.ControlListenAddress(),
		"upstream_http", cfg.UpstreamHTTPURL(),
		"upstream_tcp", cfg.UpstreamTCPAddress(),
		"backend", cfg.Transcript.Backend,
	)

	if err := supervisor.New(cfg.Proxy.ShutdownTimeout, logger.Logger).Run(ctx, tasks...); err != nil {
		return cli.NewCommandError("serve", err)
	}

	logger.Info("chproxy stopped")
	return nil
}

// reloadFunc re-reads the config file and applies the new log level. The
// level flag, when set, keeps precedence over the file. Other settings
// need a restart.
func reloadFunc(path string, flags *pflag.FlagSet, logger *logging.Logger) func() error {
	return func() error {
		previous := config.GetConfig()

		cfg, err := config.ReloadConfig(path)
		if err != nil {
			return err
		}
		if flags != nil {
			applyFlagOverrides(flags, cfg)
			config.SetConfig(cfg)
		}

		if err := logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
			return fmt.Errorf("applying log level: %w", err)
		}
		logger.Info("configuration reloaded", "log_level", cfg.Telemetry.Logging.Level)

		if previous != nil && restartRequired(previous, cfg) {
			logger.Warn("configuration changed beyond log level; restart to apply")
		}
		return nil
	}
}

// restartRequired reports whether anything other than logging changed.
func restartRequired(old, updated *config.Config) bool {
	a, b := *old, *updated
	a.Telemetry.Logging, b.Telemetry.Logging = config.LoggingConfig{}, config.LoggingConfig{}
	return fmt.Sprintf("%+v", a) != fmt.Sprintf("%+v", b)
}
