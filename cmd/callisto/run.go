package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/journal"
	"mercator-hq/callisto/pkg/pacer"
	"mercator-hq/callisto/pkg/profile"
	"mercator-hq/callisto/pkg/server"
	"mercator-hq/callisto/pkg/telemetry/health"
	"mercator-hq/callisto/pkg/telemetry/logging"
	"mercator-hq/callisto/pkg/telemetry/metrics"
	"mercator-hq/callisto/pkg/telemetry/tracing"
	"mercator-hq/callisto/pkg/transport"
)

var runFlags = struct {
	profileName string
	logLevel    string
	dryRun      bool
}{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Callisto pacing daemon",
	Long: `Start the Callisto pacing daemon with the specified configuration.

The daemon admits upstream API calls through the channel pacer, records
throttle violations in the journal, and serves pacing statistics, health
probes, and Prometheus metrics on the operational HTTP server.

Examples:
  # Start with default config
  callisto run

  # Start with custom config
  callisto run --config /etc/callisto/callisto.yaml

  # Start with a named pacing profile
  callisto run --profile conservative

  # Validate config without starting
  callisto run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.profileName, "profile", "", "pacing profile to apply over the config's pacing section")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate configuration and exit without starting")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	// Profile overlay. A profile named on the command line wins over the
	// one named in the config file.
	profileName := runFlags.profileName
	if profileName == "" {
		profileName = cfg.Profiles.Name
	}
	var activeProfile *profile.Profile
	if profileName != "" {
		activeProfile, err = applyProfile(ctx, cfg, profileName, logger)
		if err != nil {
			return cli.NewConfigError("profiles", err.Error())
		}
	}

	if runFlags.dryRun {
		fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
		if activeProfile != nil {
			fmt.Printf("✓ Profile %q applies cleanly (public %g rps, private %g rps)\n",
				activeProfile.Name, cfg.Pacing.PublicLimit, cfg.Pacing.PrivateLimit)
		}
		return nil
	}

	fmt.Printf("Callisto v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")
	if activeProfile != nil {
		fmt.Printf("✓ Profile applied: %s (%s)\n", activeProfile.Name, activeProfile.Source)
	}

	tracer := tracing.NewDisabled()
	if cfg.Telemetry.Tracing.Enabled {
		tracer, err = tracing.New(cfg.Telemetry.Tracing, Version)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tracer.Shutdown(shutdownCtx); err != nil {
				slog.Warn("tracer shutdown failed", "error", err)
			}
		}()
		fmt.Printf("✓ Tracing enabled (exporting to %s)\n", cfg.Telemetry.Tracing.Endpoint)
	}

	var backend journal.Backend
	var recorder *journal.Recorder
	if cfg.Journal.Enabled {
		switch cfg.Journal.Backend {
		case "sqlite":
			backend, err = journal.NewSQLiteBackendWithConfig(journal.SQLiteBackendConfig{
				DBPath:      cfg.Journal.SQLite.Path,
				BusyTimeout: cfg.Journal.SQLite.BusyTimeout,
			})
			if err != nil {
				return cli.NewCommandError("run", fmt.Errorf("failed to open journal database: %w", err))
			}
		case "memory":
			backend = journal.NewMemoryBackend()
		default:
			return cli.NewConfigError("journal.backend", fmt.Sprintf("unsupported backend %q", cfg.Journal.Backend))
		}
		defer backend.Close()

		recorder = journal.NewRecorder(backend, &journal.RecorderConfig{
			BufferSize: cfg.Journal.BufferSize,
		}, logger)
		defer recorder.Close()

		if cfg.Journal.Retention.Schedule != "" {
			scheduler := journal.NewScheduler(backend, cfg.Journal.Retention, logger)
			if err := scheduler.Start(ctx); err != nil {
				return cli.NewConfigError("journal.retention", err.Error())
			}
			defer scheduler.Stop()
		}

		fmt.Printf("✓ Journal ready (%s backend)\n", cfg.Journal.Backend)
	}

	// Admission-path instruments register on the default registry; the
	// collector's Handler gathers both it and the gauge registry.
	var pacerMetrics *pacer.Metrics
	if cfg.Telemetry.Metrics.Enabled {
		pacerMetrics = pacer.NewMetrics(prometheus.DefaultRegisterer)
	}

	limiterCfg := pacer.Config{
		PublicLimit:     cfg.Pacing.PublicLimit,
		PrivateLimit:    cfg.Pacing.PrivateLimit,
		BurstMultiplier: cfg.Pacing.BurstMultiplier,
		Logger:          logger,
		Metrics:         pacerMetrics,
	}
	if recorder != nil {
		limiterCfg.Violations = recorder
	}
	limiter, err := pacer.New(limiterCfg)
	if err != nil {
		return cli.NewConfigError("pacing", err.Error())
	}
	fmt.Printf("✓ Pacer ready (public %g rps, private %g rps, burst x%g)\n",
		cfg.Pacing.PublicLimit, cfg.Pacing.PrivateLimit, cfg.Pacing.BurstMultiplier)

	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		collector := metrics.NewCollector(limiter, metrics.CollectorConfig{
			PollInterval:      cfg.Telemetry.Metrics.PollInterval,
			AlertThresholdPct: cfg.Pacing.AlertThresholdPct,
		}, logger)
		collector.Start()
		defer collector.Stop()
		metricsHandler = collector.Handler()
	}

	if backend != nil && cfg.Journal.SnapshotInterval > 0 {
		snapshotter := journal.NewSnapshotter(limiter, backend, cfg.Journal.SnapshotInterval, logger)
		snapshotter.Start()
		defer snapshotter.Stop()
	}

	checker := health.New(0)
	checker.RegisterCheck("pacer", func(ctx context.Context) error {
		_, err := limiter.Stats(pacer.ChannelPublic)
		return err
	})
	if backend != nil {
		checker.RegisterCheck("journal", func(ctx context.Context) error {
			_, err := backend.CountViolations(ctx, "", time.Now().Add(-time.Minute))
			return err
		})
	}

	var client *transport.Client
	if cfg.Transport.PublicBaseURL != "" || cfg.Transport.PrivateBaseURL != "" {
		client, err = transport.New(cfg.Transport, limiter, tracer, logger)
		if err != nil {
			return cli.NewConfigError("transport", err.Error())
		}
		defer client.Close()
		checker.RegisterCheck("transport", func(ctx context.Context) error {
			return client.CheckHealth()
		})
		fmt.Println("✓ Transport ready")
	}

	errChan := make(chan error, 2)

	var srv *server.Server
	if cfg.Server.Enabled {
		srv, err = server.New(cfg.Server, server.Options{
			Limiter:   limiter,
			Checker:   checker,
			Metrics:   metricsHandler,
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
			Logger:    logger,
		})
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := srv.Start(ctx); err != nil {
				errChan <- fmt.Errorf("ops server: %w", err)
			}
		}()

		fmt.Println()
		fmt.Printf("✓ Ops server listening on %s\n", cfg.Server.ListenAddress)
		fmt.Printf("✓ Stats endpoint: http://%s/stats\n", cfg.Server.ListenAddress)
		if metricsHandler != nil {
			fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
		}
		fmt.Printf("✓ Health endpoints: http://%s/healthz http://%s/readyz\n",
			cfg.Server.ListenAddress, cfg.Server.ListenAddress)
	}

	if cfg.Pacing.Watch {
		watcher, err := config.NewWatcher(cfgFile, logger)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to watch config: %w", err))
		}
		defer watcher.Stop()

		reloader := newReloader(cfgFile, cfg, activeProfile, limiter, logger)
		go func() {
			if err := watcher.Watch(ctx, reloader.reload); err != nil {
				errChan <- fmt.Errorf("config watcher: %w", err)
			}
		}()
		fmt.Println("✓ Watching configuration for pacing changes")
	}

	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errChan:
		cancel()
		return cli.NewCommandError("run", err)
	case sig := <-cli.WaitForShutdown():
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)

		// Drain the ops server before cancelling the context so in-flight
		// stats requests finish against a live limiter.
		if srv != nil {
			if err := srv.Shutdown(context.Background()); err != nil {
				cancel()
				return cli.NewCommandError("run", fmt.Errorf("shutdown failed: %w", err))
			}
		}
		cancel()

		fmt.Println("✓ Callisto stopped")
		return nil
	}
}
