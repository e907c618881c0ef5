// Autoscaler - predictive single-instance EC2 autoscaling daemon
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atharva0045/cloud-autoscaler/internal/api"
	"github.com/Atharva0045/cloud-autoscaler/internal/autoscale"
	"github.com/Atharva0045/cloud-autoscaler/internal/cloud"
	"github.com/Atharva0045/cloud-autoscaler/internal/config"
	"github.com/Atharva0045/cloud-autoscaler/internal/daemon"
	"github.com/Atharva0045/cloud-autoscaler/internal/lifecycle"
	"github.com/Atharva0045/cloud-autoscaler/internal/metrics"
	"github.com/Atharva0045/cloud-autoscaler/internal/metricsource"
	"github.com/Atharva0045/cloud-autoscaler/internal/policy"
	"github.com/Atharva0045/cloud-autoscaler/internal/prediction"
	"github.com/Atharva0045/cloud-autoscaler/internal/sequence"
	"github.com/Atharva0045/cloud-autoscaler/pkg/clock"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "autoscaler.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Autoscaler %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("instance_id", cfg.Instance.ID).
		Bool("dry_run", cfg.Scaling.DryRun).
		Int("cooldown_seconds", cfg.Scaling.Cooldown.Seconds()).
		Int("interval_seconds", cfg.Daemon.Interval.Seconds()).
		Msg("Starting autoscaler")

	ctx := context.Background()

	awsCfg := cloud.ClientConfig{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		SessionToken:    cfg.AWS.SessionToken,
		Endpoint:        cfg.AWS.Endpoint,
		PollInterval:    cfg.Scaling.PollInterval.Duration(),
	}
	ec2Client, err := cloud.NewClient(ctx, awsCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize EC2 client")
	}
	monitoring, err := cloud.NewMonitoring(ctx, awsCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize SSM client")
	}

	seq, err := sequence.New(cfg.Instance.TypeSequence)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid instance type sequence")
	}

	controller := lifecycle.New(ec2Client, monitoring, seq, lifecycle.Config{
		InstanceID:  cfg.Instance.ID,
		DryRun:      cfg.Scaling.DryRun,
		WaitTimeout: cfg.Scaling.WaitTimeout.Duration(),
	}, logger)

	source := metricsource.NewClient(metricsource.Config{
		URL:            cfg.Metrics.URL,
		Port:           cfg.Metrics.Port,
		Step:           cfg.Metrics.Step.Duration(),
		InstanceID:     cfg.Instance.ID,
		RequestTimeout: cfg.Metrics.RequestTimeout.Duration(),
	}, ec2Client, logger)

	// The model is loaded once at startup. A missing artifact is fatal here
	// rather than on the first cycle.
	predictor, err := prediction.New(cfg.Model.ModelPath, cfg.Model.ScalerPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load prediction model")
	}

	stats := metrics.New()
	pol := policy.New(cfg.Scaling.ScaleUpThreshold, cfg.Scaling.ScaleDownThreshold, cfg.Scaling.MinConfidence)
	tracker := policy.NewCooldownTracker(cfg.Scaling.Cooldown.Duration(), clock.New())

	engine := autoscale.New(source, predictor, controller, ec2Client, pol, tracker, stats,
		autoscale.Config{
			InstanceID: cfg.Instance.ID,
			Window:     cfg.Metrics.Window.Duration(),
			BufferPath: cfg.Metrics.BufferPath,
		}, logger)

	handler := api.NewHandler(engine, cfg.Scaling.DryRun, Version, logger)
	router := api.NewRouter(handler, logger, api.RouterConfig{
		RequestTimeout: cfg.Server.WriteTimeout.Duration(),
		Stats:          stats,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
	}

	go func() {
		logger.Info().Str("address", cfg.Server.Address).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	daemonCtx, daemonCancel := context.WithCancel(context.Background())
	daemonDone := make(chan struct{})
	if cfg.Daemon.Enabled {
		var runner daemon.CycleRunner
		if cfg.Daemon.EndpointURL != "" {
			runner = daemon.EndpointRunner{
				URL:     cfg.Daemon.EndpointURL,
				Timeout: cfg.Daemon.RequestTimeout.Duration(),
				Logger:  logger,
			}
		} else {
			runner = daemon.LocalRunner{Engine: engine}
		}
		d := daemon.New(runner, daemon.Config{
			Interval:   cfg.Daemon.Interval.Duration(),
			RetryDelay: cfg.Daemon.RetryDelay.Duration(),
		}, nil, logger)
		go func() {
			d.Run(daemonCtx)
			close(daemonDone)
		}()
	} else {
		close(daemonDone)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	daemonCancel()
	<-daemonDone

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("Autoscaler stopped")
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	}

	level := cfg.Level
	if env := os.Getenv("AUTOSCALER_LOG_LEVEL"); env != "" {
		level = env
	}
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return logger
}
