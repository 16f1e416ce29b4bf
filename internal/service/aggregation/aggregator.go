// Package aggregation turns normalized activity tables into the per-user
// feature matrix.
package aggregation

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
)

// Aggregator computes the six feature groups and merges them.
type Aggregator struct {
	keywords []string
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewAggregator creates an aggregator using SensitiveKeywords.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		keywords: SensitiveKeywords,
		logger:   logger.With("component", "aggregation"),
		tracer:   otel.Tracer("service.aggregation"),
	}
}

// Aggregate builds the feature matrix. Every user with at least one record
// in a table that carries an actor column gets exactly one row.
func (a *Aggregator) Aggregate(ctx context.Context, tables activity.Tables) (*features.Matrix, error) {
	_, span := a.tracer.Start(ctx, "aggregation.Aggregate")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logon := tables.Get(activity.SourceLogon)
	email := tables.Get(activity.SourceEmail)

	m := features.Merge(
		loginHabits(logon),
		volume(tables.Get(activity.SourceFile), features.ColumnFilesPerDay),
		volume(tables.Get(activity.SourceDevice), features.ColumnUSBPerDay),
		volume(email, features.ColumnEmailsPerDay),
		afterHours(logon),
		centrality(email),
		textSignals(email, a.keywords),
	)

	span.SetAttributes(
		attribute.Int("matrix.users", m.Len()),
		attribute.Int("matrix.columns", len(m.Columns)),
	)
	a.logger.InfoContext(ctx, "feature matrix built", "users", m.Len(), "columns", len(m.Columns))
	return m, nil
}
