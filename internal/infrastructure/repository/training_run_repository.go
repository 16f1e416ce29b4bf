package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/training"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/telemetry"
)

// TrainingRunRepository stores the history of model fits in Postgres.
type TrainingRunRepository struct {
	db *sql.DB
}

func NewTrainingRunRepository(db *sql.DB) *TrainingRunRepository {
	return &TrainingRunRepository{db: db}
}

// Save inserts one run. Runs are immutable; saving the same id twice fails
// with ErrDuplicateKey.
func (r *TrainingRunRepository) Save(ctx context.Context, run *training.Run) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "insert", "training_runs")
	defer span.End()

	query := `
		INSERT INTO training_runs (
			id, started_at, duration_ms, users, anomalies,
			contamination, seed, top_user, top_score, snapshot_location
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.StartedAt, run.DurationMS, run.Users, run.Anomalies,
		run.Contamination, run.Seed, run.TopUser, run.TopScore, run.SnapshotLocation,
	)
	if err != nil {
		telemetry.WithSpanError(span, err)
		if IsDuplicateKeyViolation(err) {
			return fmt.Errorf("training run %s: %w", run.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert training run: %w", err)
	}
	return nil
}

// ListRecent returns up to limit runs, newest first.
func (r *TrainingRunRepository) ListRecent(ctx context.Context, limit int) ([]*training.Run, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "select", "training_runs")
	defer span.End()

	query := `
		SELECT id, started_at, duration_ms, users, anomalies,
			contamination, seed, top_user, top_score, snapshot_location
		FROM training_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*training.Run, 0, limit)
	for rows.Next() {
		var run training.Run
		if err := rows.Scan(
			&run.ID, &run.StartedAt, &run.DurationMS, &run.Users, &run.Anomalies,
			&run.Contamination, &run.Seed, &run.TopUser, &run.TopScore, &run.SnapshotLocation,
		); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate training runs: %w", err)
	}
	return runs, nil
}
