// Package main provides the entry point for the expert calibration engine.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/expert-revision/internal/config"
	"github.com/yourusername/expert-revision/internal/database"
	"github.com/yourusername/expert-revision/internal/health"
	"github.com/yourusername/expert-revision/internal/logger"
	"github.com/yourusername/expert-revision/internal/metrics"
	"github.com/yourusername/expert-revision/internal/repository"
	"github.com/yourusername/expert-revision/internal/scheduler"
	"github.com/yourusername/expert-revision/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	cfg        *config.Config
	appLog     *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(serveCmd, replayCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "calibrator",
	Short: "Online calibration and belief revision for forecasting experts",
	Long: `Applies graded game outcomes to each expert's calibration state and
revises expert behaviour when recent outcomes show systematic errors.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return loadConfig(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "calibrator %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the health server and scheduled effectiveness sweeps",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	// stdout carries replay reports
	appLog.SetOutput(os.Stderr)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"backend":     cfg.Persistence.Backend,
	}).Debug("Configuration loaded")

	return nil
}

// openRepositories returns the configured storage backend. The returned
// DB is nil for the memory backend.
func openRepositories(ctx context.Context) (*repository.Repositories, *database.DB, error) {
	if !cfg.UsesPostgres() {
		return repository.NewMemoryRepositories(), nil, nil
	}

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	appLog.Info("Database connection established")

	return repos, db, nil
}

func serve(ctx context.Context) error {
	appLog.WithFields(logrus.Fields{
		"version": Version,
		"commit":  GitCommit,
	}).Info("Calibration engine starting")

	repos, db, err := openRepositories(ctx)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	svc := service.NewCalibrationService(cfg, repos, appLog)

	if cfg.Health.Enabled {
		healthCfg := health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Port:        strconv.Itoa(cfg.Health.Port),
			Logger:      appLog,
			Engine:      svc,
		}
		if db != nil {
			healthCfg.DB = db
		}
		if cfg.Metrics.Enabled {
			metrics.InitRegistry()
			healthCfg.Metrics = metrics.Handler()
			healthCfg.MetricsPath = cfg.Metrics.Path
		}

		healthServer := health.NewServer(healthCfg)
		if err := healthServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		healthServer.SetReady(true)
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(svc, appLog)
		if err := sched.ScheduleEffectivenessSweep(cfg.Scheduler.EffectivenessSweep); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				appLog.WithError(err).Warn("Scheduler did not stop cleanly")
			}
		}()
	}

	<-ctx.Done()
	appLog.Info("Shutdown signal received")
	return nil
}
