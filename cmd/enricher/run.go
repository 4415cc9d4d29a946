package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/enricher/pkg/cli"
	"mercator-hq/enricher/pkg/config"
	"mercator-hq/enricher/pkg/proxy"
	"mercator-hq/enricher/pkg/server"
	"mercator-hq/enricher/pkg/telemetry/health"
	"mercator-hq/enricher/pkg/telemetry/metrics"
	"mercator-hq/enricher/pkg/telemetry/tracing"
	"mercator-hq/enricher/pkg/transform/ruleset"
)

var runFlags struct {
	listenAddress string
	upstream      string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the enricher proxy",
	Long: `Start the enricher proxy with the specified configuration.

The proxy listens on the configured address and forwards every request to the
upstream, applying the header and body rules in both directions.

The probes (/health, /ready, /version) and the metrics path are answered by the
enricher and never reach the upstream. Move them with telemetry.health.path_prefix
and telemetry.metrics.path when the upstream serves routes with those names.

SIGHUP re-reads the configuration file. With rules.watch enabled the file is
also watched for changes. Only the rules are reloaded; listener and upstream
settings need a restart.

Examples:
  # Start with default config
  enricher run

  # Start with custom config
  enricher run --config /etc/enricher/config.yaml

  # Override listen address and upstream
  enricher run --listen 0.0.0.0:8080 --upstream http://127.0.0.1:9000

  # Validate config without starting server
  enricher run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVarP(&runFlags.upstream, "upstream", "u", "", "override upstream URL")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Flags are applied before validation so they can supply required fields.
	if err := config.Initialize(cfgFile, runOverrides()...); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	store := config.GlobalStore()
	cfg := store.Get()

	logger, err := newLogger(cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	a, err := newApp(store, logger)
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		a.shutdownTracer()
		fmt.Printf("✓ Configuration valid (%d rules)\n", a.rules.Load().Len())
		return nil
	}

	parent := context.Background()
	if cmd != nil && cmd.Context() != nil {
		parent = cmd.Context()
	}
	ctx, stop := cli.SetupSignalHandler(parent)
	defer stop()

	if err := a.start(ctx); err != nil {
		return err
	}
	defer a.stop()

	printBanner(cfg, a)

	if err := a.server.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

// runOverrides turns the run flags into config overrides. The store keeps
// them, so a reload does not lose them.
func runOverrides() []config.Override {
	var overrides []config.Override
	if addr := runFlags.listenAddress; addr != "" {
		overrides = append(overrides, func(c *config.Config) { c.Proxy.ListenAddress = addr })
	}
	if upstream := runFlags.upstream; upstream != "" {
		overrides = append(overrides, func(c *config.Config) { c.Proxy.UpstreamURL = upstream })
	}
	if level := runFlags.logLevel; level != "" {
		overrides = append(overrides, func(c *config.Config) { c.Telemetry.Logging.Level = level })
	}
	return overrides
}

// app is everything the run command wires together around one store.
type app struct {
	store     *config.Store
	logger    *slog.Logger
	rules     *ruleset.Live
	collector *metrics.Collector
	reporter  *metrics.Reporter
	tracer    *tracing.Tracer
	checker   *health.Checker
	server    *server.Server
	watcher   *config.FileWatcher
}

func newApp(store *config.Store, logger *slog.Logger) (*app, error) {
	cfg := store.Get()

	rules, err := ruleset.Build(cfg.Rules)
	if err != nil {
		return nil, cli.NewConfigError("rules", err.Error())
	}
	live := ruleset.NewLive(rules)
	live.Follow(store, logger)

	upstream, err := url.Parse(cfg.Proxy.UpstreamURL)
	if err != nil {
		return nil, cli.NewConfigError("proxy.upstream_url", err.Error())
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	tracer, err := tracing.New(cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	handler, err := proxy.NewHandler(proxy.Options{
		Upstream:  upstream,
		Rules:     live,
		ChunkSize: cfg.Proxy.ChunkSize,
		Recorder:  collector,
		Tracer:    tracer,
		Logger:    logger,
	})
	if err != nil {
		return nil, cli.NewCommandError("run", err)
	}

	checker := health.New(0)
	checker.RegisterCheck("config", health.ConfigLoaded(store))
	checker.RegisterCheck("rules", health.RulesLoaded(live))
	checker.RegisterCheck("upstream", health.UpstreamReachable(upstream))

	return &app{
		store:     store,
		logger:    logger,
		rules:     live,
		collector: collector,
		reporter:  metrics.NewReporter(collector, cfg.Telemetry.Metrics.ReportSchedule, logger),
		tracer:    tracer,
		checker:   checker,
		server: server.NewServer(cfg, server.Options{
			Proxy:     handler,
			Collector: collector,
			Checker:   checker,
			Version:   versionInfo(),
			Logger:    logger,
		}),
	}, nil
}

// start launches the background work: the metrics reporter, the config file
// watcher and the SIGHUP reload loop. All of it ends with ctx.
func (a *app) start(ctx context.Context) error {
	cfg := a.store.Get()

	if err := a.reporter.Start(ctx); err != nil {
		return cli.NewConfigError("telemetry.metrics.report_schedule", err.Error())
	}

	if cfg.Rules.Watch {
		watcher, err := config.NewFileWatcher(a.store, cfg.Rules.WatchDebounce, a.logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		a.watcher = watcher
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				a.logger.Error("config watcher failed", "error", err)
			}
		}()
	}

	reload, stopReload := cli.ReloadSignals()
	go func() {
		defer stopReload()
		for {
			select {
			case <-ctx.Done():
				return
			case <-reload:
				a.reload()
			}
		}
	}()

	return nil
}

func (a *app) reload() {
	if err := a.store.Reload(); err != nil {
		a.logger.Error("config reload failed, keeping previous configuration", "error", err)
		return
	}
	a.logger.Info("config reloaded", "path", a.store.Path())
}

func (a *app) stop() {
	a.reporter.Stop()
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("failed to stop config watcher", "error", err)
		}
	}
	a.shutdownTracer()
}

// shutdownTracer flushes pending spans, giving the collector a few seconds.
func (a *app) shutdownTracer() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
}

func printBanner(cfg *config.Config, a *app) {
	fmt.Printf("Enricher v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")
	fmt.Printf("✓ Rules loaded (%d rules)\n", a.rules.Load().Len())
	fmt.Printf("✓ Upstream: %s\n", cfg.Proxy.UpstreamURL)
	scheme := "http"
	if cfg.Proxy.TLS.Enabled {
		scheme = "https"
	}
	fmt.Printf("✓ Health endpoint: %s://%s%s/health\n", scheme, cfg.Proxy.ListenAddress, cfg.Telemetry.Health.PathPrefix)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: %s://%s%s\n", scheme, cfg.Proxy.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	if a.tracer.Enabled() {
		fmt.Printf("✓ Tracing to %s (sampler %s)\n", cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.Sampler)
	}
	if cfg.Rules.Watch {
		slog.Debug("watching configuration for rule changes", "path", cfgFile)
	}
	fmt.Println("\nPress Ctrl+C to stop")
}
