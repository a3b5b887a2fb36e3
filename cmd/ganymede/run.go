package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/audit/recorder"
	"mercator-hq/ganymede/pkg/audit/retention"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/fanout"
	"mercator-hq/ganymede/pkg/identity"
	"mercator-hq/ganymede/pkg/policy"
	"mercator-hq/ganymede/pkg/policy/git"
	"mercator-hq/ganymede/pkg/proxy"
	"mercator-hq/ganymede/pkg/server"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Ganymede proxy server",
	Long: `Start the Ganymede proxy server with the specified configuration.

The server listens on the configured address and serves context requests
through the identity, policy, fan-out, filter, envelope, and audit stages.

Examples:
  # Start with default config
  ganymede run

  # Start with custom config
  ganymede run --config /etc/ganymede/config.yaml

  # Override listen address
  ganymede run --listen 0.0.0.0:8080

  # Validate config without starting the server
  ganymede run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	// Initialize logging before anything else so every component logs
	// through the redacting handler.
	logger, err := logging.New(logging.Config{
		Level:          cfg.Telemetry.Logging.Level,
		Format:         cfg.Telemetry.Logging.Format,
		AddSource:      cfg.Telemetry.Logging.AddSource,
		RedactPatterns: cfg.Telemetry.Logging.RedactPatterns,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Slog())

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
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

	// Metrics
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	// Identity
	verifier, err := buildVerifier(&cfg.Identity)
	if err != nil {
		return cli.NewConfigError("identity", err.Error())
	}
	validator := identity.NewValidator(verifier)

	// Policy engine with initial load, plus reload paths: an fsnotify
	// watcher for local directories, a git poller for repositories.
	engine := policy.NewEngine()
	loader := policy.NewLoader(nil)

	policyDir := cfg.Policy.Dir
	var repo *git.Repository
	if cfg.Policy.Mode == "git" {
		repo, err = git.NewRepository(&git.Config{
			URL:          cfg.Policy.Git.Repository,
			Branch:       cfg.Policy.Git.Branch,
			Path:         cfg.Policy.Git.Path,
			LocalPath:    cfg.Policy.Git.LocalPath,
			CleanOnStart: cfg.Policy.Git.CleanOnStart,
			Depth:        cfg.Policy.Git.Depth,
			Timeout:      cfg.Policy.Git.Poll.Timeout,
			Auth: git.AuthConfig{
				Type:             cfg.Policy.Git.Auth.Type,
				Token:            cfg.Policy.Git.Auth.Token,
				SSHKeyPath:       cfg.Policy.Git.Auth.SSHKeyPath,
				SSHKeyPassphrase: cfg.Policy.Git.Auth.SSHKeyPassphrase,
			},
		})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to prepare policy repository: %w", err))
		}
		slog.Info("cloning policy repository",
			"url", cfg.Policy.Git.Repository,
			"branch", cfg.Policy.Git.Branch,
		)
		if err := repo.Clone(ctx); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to clone policy repository: %w", err))
		}
		policyDir = repo.PolicyDir()
	}

	reloadPolicies := func() error {
		decisions, err := loader.LoadDir(policyDir)
		if err == nil {
			err = engine.Load(decisions)
		}
		if err != nil {
			collector.RecordPolicyReload("error")
			return err
		}
		collector.RecordPolicyReload("success")
		collector.UpdatePoliciesLoaded(engine.Len())
		return nil
	}
	if err := reloadPolicies(); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to load policies: %w", err))
	}
	fmt.Printf("✓ Policies loaded (%d intents, digest %.12s)\n", engine.Len(), engine.Digest())

	if cfg.Policy.Mode != "git" && cfg.Policy.Watch {
		watcher, err := policy.NewWatcher(&policy.WatcherConfig{Path: policyDir})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to start policy watcher: %w", err))
		}
		defer watcher.Stop()
		go func() {
			if err := watcher.Watch(ctx, reloadPolicies); err != nil {
				slog.Error("policy watcher stopped", "error", err)
			}
		}()
		slog.Info("policy watcher started", "dir", policyDir)
	}
	if repo != nil && !cfg.Policy.Git.Poll.Disabled {
		poller := git.NewPoller(repo, cfg.Policy.Git.Poll.Interval, func(string) error {
			return reloadPolicies()
		})
		go poller.Run(ctx)
		slog.Info("policy poller started", "interval", cfg.Policy.Git.Poll.Interval.String())
	}

	// Sources
	registry, err := buildSources(cfg.Sources)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer registry.Close()
	fmt.Printf("✓ Sources initialized (%d connectors)\n", registry.Len())

	// Payload cache and fan-out coordinator
	payloadCache, err := buildCache(&cfg.Cache)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize cache: %w", err))
	}
	defer payloadCache.Close()

	coordinator, err := fanout.NewCoordinator(&fanout.Config{
		SourceTimeout: cfg.Fanout.SourceTimeout,
		TotalTimeout:  cfg.Fanout.TotalTimeout,
		MaxConcurrent: cfg.Fanout.MaxConcurrent,
	}, payloadCache)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// Audit trail
	auditStore, err := buildAuditStorage(&cfg.Audit)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to open audit storage: %w", err))
	}
	defer auditStore.Close()

	rec, err := recorder.NewRecorder(auditStore, &recorder.Config{
		WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Printf("✓ Audit trail ready (%s backend)\n", cfg.Audit.Backend)

	if cfg.Audit.Retention.Enabled && cfg.Audit.Retention.Schedule != "" {
		pruner, err := retention.NewPruner(auditStore, retentionConfig(&cfg.Audit.Retention))
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		scheduler, err := retention.NewScheduler(pruner, cfg.Audit.Retention.Schedule)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		if err := scheduler.Start(); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer scheduler.Stop()
		slog.Info("audit retention scheduled", "schedule", cfg.Audit.Retention.Schedule)
	}

	// Quotas
	limiter, err := buildLimiter(&cfg.Limits)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	if limiter != nil {
		fmt.Println("✓ Quota enforcement enabled")
	}

	// Pipeline
	pipeline, err := proxy.New(proxy.Dependencies{
		Validator:   validator,
		Engine:      engine,
		Sources:     registry,
		Coordinator: coordinator,
		Recorder:    rec,
		Limiter:     limiter,
		Metrics:     collector,
		Tracer:      tracer,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer pipeline.Close()

	// Readiness checks. Sources degrade readiness only when none are
	// reachable: optional-source outages must not pull the instance.
	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("policy", func(ctx context.Context) error {
		if engine.Len() == 0 {
			return fmt.Errorf("no policies loaded")
		}
		return nil
	})
	checker.RegisterCheck("audit", func(ctx context.Context) error {
		_, err := auditStore.Count(ctx, &audit.Query{})
		return err
	})
	checker.RegisterCheck("sources", func(ctx context.Context) error {
		results := registry.HealthCheck(ctx)
		if len(results) == 0 {
			return nil
		}
		failed := 0
		for _, err := range results {
			if err != nil {
				failed++
			}
		}
		if failed == len(results) {
			return fmt.Errorf("all %d sources unhealthy", failed)
		}
		return nil
	})

	// HTTP server
	srv, err := server.New(cfg, &server.Dependencies{
		Provider:     pipeline,
		AuditStorage: auditStore,
		Checker:      checker,
		Metrics:      collector,
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Context endpoint: http://%s/v1/context\n", cfg.Server.ListenAddress)
	if !cfg.Telemetry.Metrics.Disabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Ganymede v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	if cfg.Policy.Mode == "git" {
		slog.Debug("policy mode", "mode", "git", "repository", cfg.Policy.Git.Repository)
	} else {
		slog.Debug("policy mode", "mode", "dir", "dir", cfg.Policy.Dir)
	}
	slog.Debug("sources configured", "count", len(cfg.Sources))
}
