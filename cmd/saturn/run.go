package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/expiry/maintenance"
)

var runFlags struct {
	logLevel    string
	dryRun      bool
	watchConfig bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Saturn maintenance daemon",
	Long: `Start the Saturn maintenance daemon with the specified configuration.

The daemon provisions future partitions and retires expired ones on the
configured cron schedule. One maintenance cycle always runs at startup, so
a fresh deployment has partitions before the first scheduled run. When
metrics are enabled the daemon also serves a Prometheus endpoint.

Examples:
  # Start with default config
  saturn run

  # Start with custom config
  saturn run --config /etc/saturn/config.yaml

  # Reload configuration when the file changes
  saturn run --watch-config

  # Validate config without starting the daemon
  saturn run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", false, "reload configuration when the file changes")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logLevel := setupLogging(cfg)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	// Print startup banner
	printBanner(cfg)

	// Open store backends
	slog.Info("opening store backends", "backend", cfg.Store.Backend)
	stores, err := openBackends(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer stores.Close()
	fmt.Printf("✓ Store backends ready (%s)\n", cfg.Store.Backend)

	// Metrics register with the default Prometheus registry once per
	// process, so they are created here and nowhere else.
	var metrics *maintenance.Metrics
	if cfg.Metrics.Enabled {
		metrics = maintenance.NewMetrics()
	}

	coordinator := maintenance.NewCoordinator(stores.registry, stores.engine, &maintenance.CoordinatorConfig{
		Policy:      expiryPolicy(cfg),
		ArchivePath: cfg.Maintenance.ArchivePath,
		Metrics:     metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run one cycle up front so the partition covering the current time
	// exists before any writes arrive.
	report, err := coordinator.RunOnce(ctx)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("initial maintenance run failed: %w", err))
	}
	fmt.Printf("✓ Initial maintenance run complete (%d created, %d retired)\n",
		len(report.Created), len(report.Retired))

	// Start the maintenance scheduler
	scheduler := maintenance.NewScheduler(coordinator, cfg.Maintenance.Schedule)
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start scheduler: %w", err))
	}
	defer scheduler.Stop()

	if next := scheduler.NextRun(); next != nil {
		fmt.Printf("✓ Maintenance scheduled (%q, next run %s)\n",
			cfg.Maintenance.Schedule, next.Format(time.RFC3339))
	}

	errChan := make(chan error, 1)

	// Serve Prometheus metrics
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:    cfg.Metrics.ListenAddress,
			Handler: mux,
		}

		go func() {
			slog.Info("starting metrics server",
				"address", cfg.Metrics.ListenAddress,
				"path", cfg.Metrics.Path,
			)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()

		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Metrics.ListenAddress, cfg.Metrics.Path)
	}

	// Watch the config file for edits
	if runFlags.watchConfig {
		watcher, err := config.NewWatcher(cfgFile, slog.Default())
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to create config watcher: %w", err))
		}
		defer watcher.Stop()
		go func() {
			if err := watcher.Watch(ctx, applyReload(logLevel)); err != nil {
				slog.Error("config watcher stopped", "error", err)
			}
		}()
		fmt.Println("✓ Config watcher active")
	}

	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for shutdown signal or component error
	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		// Wait for an in-flight maintenance run before closing stores.
		scheduler.Stop()

		if metricsSrv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}

		fmt.Println("✓ Daemon stopped")
		return nil
	}
}

// setupLogging installs the default slog handler per the logging config.
// The returned LevelVar allows live level changes on config reload.
func setupLogging(cfg *config.Config) *slog.LevelVar {
	level := new(slog.LevelVar)
	level.Set(parseLogLevel(cfg.Logging.Level))

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	return level
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyReload returns the reload callback for the config watcher. It
// validates and swaps the configuration, then applies the settings a
// running daemon can honor. Storage, scheduling, and listener changes
// take effect on restart.
func applyReload(level *slog.LevelVar) func() error {
	return func() error {
		if err := config.ReloadConfig(cfgFile); err != nil {
			return err
		}

		cfg := config.GetConfig()
		level.Set(parseLogLevel(cfg.Logging.Level))

		slog.Info("configuration reloaded",
			"log_level", cfg.Logging.Level,
		)
		return nil
	}
}

func printBanner(cfg *config.Config) {
	fmt.Println(versionString())
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	slog.Debug("expiry policy",
		"partition_width", cfg.Expiry.PartitionWidth,
		"premake_count", cfg.Expiry.PremakeCount,
		"grace_period", cfg.Expiry.GracePeriod,
	)

	if cfg.Maintenance.RetirementMode == "archiveThenDrop" {
		slog.Debug("retirement archives before dropping", "path", cfg.Maintenance.ArchivePath)
	}
}
