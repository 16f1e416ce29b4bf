// Package service assembles the detection pipeline from configuration.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/zap"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/config"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/database"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/repository"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/snapshot"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/metrics"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/aggregation"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/ingest"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/insider"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/scoring"
)

// Options carries the process-level collaborators that are not derived from
// configuration.
type Options struct {
	Logger    *slog.Logger
	ZapLogger *zap.Logger
	Notifier  insider.Notifier
	// SkipMigrations leaves the run-history schema untouched.
	SkipMigrations bool
}

// Components is the wired pipeline plus the resources it owns.
type Components struct {
	Insider insider.Service
	Store   snapshot.Store
	DB      *sql.DB
	Runs    *repository.TrainingRunRepository
	Metrics *metrics.Registry
	closers []io.Closer
	logger  *slog.Logger
}

// Build wires loader, aggregator, scorer, snapshot store, optional run
// history and metrics into an insider.Service.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	zl := opts.ZapLogger
	if zl == nil {
		zl = zap.NewNop()
	}

	c := &Components{logger: logger}

	scorer, err := scoring.NewScorer(ScoringConfig(cfg), logger)
	if err != nil {
		return nil, err
	}

	store, err := snapshot.NewStore(ctx, cfg, zl)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}
	c.Store = store
	if closer, ok := store.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}

	registry, err := metrics.NewRegistry("insider-threat-detection")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create metrics registry: %w", err)
	}
	c.Metrics = registry

	deps := insider.Dependencies{
		Loader:     ingest.NewLoader(logger),
		Aggregator: aggregation.NewAggregator(logger),
		Scorer:     scorer,
		Metrics:    registry,
		Logger:     logger,
	}
	if store != nil {
		deps.Store = store
	}
	if opts.Notifier != nil {
		deps.Notifier = opts.Notifier
	}

	if cfg.Database.Enabled() {
		db, err := database.Open(ctx, &cfg.Database)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.DB = db
		c.closers = append(c.closers, db)

		if !opts.SkipMigrations {
			if err := database.Migrate(db); err != nil {
				c.Close()
				return nil, err
			}
		}
		c.Runs = repository.NewTrainingRunRepository(db)
		deps.Runs = c.Runs
	}

	svc, err := insider.NewService(InsiderConfig(cfg), deps)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Insider = svc

	logger.Info("pipeline assembled",
		"snapshot", snapshotLocation(store),
		"run_history", c.Runs != nil,
		"num_trees", cfg.Model.NumTrees,
		"contamination", cfg.Model.Contamination,
	)
	return c, nil
}

// ScoringConfig maps the model section onto the forest hyperparameters.
func ScoringConfig(cfg *config.Config) scoring.Config {
	return scoring.Config{
		NumTrees:      cfg.Model.NumTrees,
		MaxSamples:    cfg.Model.MaxSamples,
		Contamination: cfg.Model.Contamination,
		Seed:          cfg.Model.Seed,
		Workers:       cfg.Model.Workers,
	}
}

func InsiderConfig(cfg *config.Config) insider.Config {
	return insider.Config{
		DataDir:       cfg.Data.Dir,
		MaxRows:       cfg.Data.MaxRows,
		TopN:          cfg.Model.TopN,
		Contamination: cfg.Model.Contamination,
		Seed:          cfg.Model.Seed,
	}
}

// Close releases the database and snapshot connections.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func snapshotLocation(store snapshot.Store) string {
	if store == nil {
		return "disabled"
	}
	return store.Location()
}
