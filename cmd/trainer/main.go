package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/config"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/telemetry"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/insider"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	mode       = flag.String("mode", "refresh", "Operation mode: refresh, status, top, runs")
	dataDir    = flag.String("data", "", "Override the log directory")
	topN       = flag.Int("top", insider.DefaultTopN, "Rows printed by the top mode")
	limit      = flag.Int("limit", insider.DefaultRunLimit, "Rows printed by the runs mode")
	dryRun     = flag.Bool("dry-run", false, "Train without writing a snapshot")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, err := service.Build(ctx, cfg, service.Options{Logger: logger})
	if err != nil {
		logger.Error("Failed to assemble pipeline", "error", err)
		os.Exit(1)
	}
	defer components.Close()

	svc := components.Insider
	switch *mode {
	case "refresh":
		err = runRefresh(ctx, svc, cfg.Data, logger)
	case "status":
		err = runStatus(ctx, svc, os.Stdout)
	case "top":
		err = runTop(ctx, svc, os.Stdout)
	case "runs":
		err = runRuns(ctx, svc, os.Stdout)
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}

	if err != nil {
		logger.Error("Operation failed", "mode", *mode, "error", err)
		components.Close()
		os.Exit(1)
	}
	logger.Info("Operation completed successfully", "mode", *mode)
}

// runRefresh retrains from the log directory and persists the result.
func runRefresh(ctx context.Context, svc insider.Service, data config.DataConfig, logger *slog.Logger) error {
	start := time.Now()
	if *dryRun {
		if _, err := svc.LoadData(ctx, data.Dir, data.MaxRows); err != nil {
			return fmt.Errorf("load failed: %w", err)
		}
		m, err := svc.Train(ctx, false)
		if err != nil {
			return fmt.Errorf("train failed: %w", err)
		}
		logger.Info("DRY RUN: model trained but not persisted", "users", m.Len())
		return nil
	}

	m, err := svc.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	logger.Info("Refresh completed",
		"users", m.Len(),
		"duration", time.Since(start))
	return nil
}

// runStatus restores the persisted model and prints its status.
func runStatus(ctx context.Context, svc insider.Service, w io.Writer) error {
	if err := svc.Bootstrap(ctx); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(svc.Status(ctx))
}

func runTop(ctx context.Context, svc insider.Service, w io.Writer) error {
	if err := svc.Bootstrap(ctx); err != nil {
		return err
	}
	rows := svc.RiskyUsers(ctx, *topN)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No model has been trained yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUSER\tSCORE\tANOMALOUS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%v\t%v\t%.4f\t%v\n",
			r[features.ColumnRank], r[features.ColumnUser], r[features.ColumnScore], r[features.ColumnAnomalous])
	}
	return tw.Flush()
}

func runRuns(ctx context.Context, svc insider.Service, w io.Writer) error {
	runs, err := svc.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No training runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION_MS\tUSERS\tANOMALIES\tTOP_USER")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.DurationMS, r.Users, r.Anomalies, r.TopUser)
	}
	return tw.Flush()
}
