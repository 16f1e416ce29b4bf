package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/api/rest"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/api/websocket"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/config"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/telemetry"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service"
)

func main() {
	var (
		configPath     = flag.String("config", "", "Path to configuration file")
		skipMigrations = flag.Bool("skip-migrations", false, "Do not migrate the run-history schema on startup")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, *skipMigrations); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, skipMigrations bool) error {
	logger.Info("starting insider threat detection",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"data_dir", cfg.Data.Dir)

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telemetry.ConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown telemetry", "error", err)
		}
	}()

	zl, err := telemetry.NewZapLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create zap logger: %w", err)
	}
	defer zl.Sync() //nolint:errcheck

	events := websocket.NewHandler(zl.Named("events"))
	events.Start(ctx)
	defer events.Stop()

	components, err := service.Build(ctx, cfg, service.Options{
		Logger:         logger,
		ZapLogger:      zl,
		Notifier:       events,
		SkipMigrations: skipMigrations,
	})
	if err != nil {
		return err
	}
	defer components.Close()

	if cfg.Server.RefreshOnStart {
		if _, err := components.Insider.Refresh(ctx); err != nil {
			return fmt.Errorf("initial refresh failed: %w", err)
		}
	} else if err := components.Insider.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	health := rest.NewHealthService(components.Insider, 5*time.Second)
	health.RegisterChecker(rest.NewModelHealthChecker(components.Insider))
	if components.DB != nil {
		health.RegisterChecker(rest.NewDatabaseHealthChecker(components.DB))
	}
	health.RegisterChecker(rest.NewCheckerFunc("events", true, func(context.Context) error {
		return events.HealthCheck()
	}))

	handler, err := rest.NewRouter(rest.RouterConfig{
		Service:        components.Insider,
		Events:         http.HandlerFunc(events.HandleEvents),
		Health:         health,
		Metrics:        promhttp.Handler(),
		Logger:         logger,
		Version:        cfg.Version,
		RateLimitRPS:   cfg.Security.RateLimit.RequestsPerSecond,
		RateLimitBurst: cfg.Security.RateLimit.BurstSize,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	server := rest.NewServer(cfg.Server, handler, logger)
	return server.Run(ctx)
}
