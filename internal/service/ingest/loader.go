// Package ingest loads the raw monitoring CSVs and normalizes them into the
// canonical activity schema.
package ingest

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/errors"
)

// Loader reads the four source files from a directory.
type Loader struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger: logger.With("component", "ingest"),
		tracer: otel.Tracer("service.ingest"),
	}
}

// Load normalizes every source found in dir. Missing files yield empty
// tables; only unreadable or malformed files return an error.
func (l *Loader) Load(ctx context.Context, dir string, maxRows int) (activity.Tables, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	ctx, span := l.tracer.Start(ctx, "ingest.Load", trace.WithAttributes(
		attribute.String("data.dir", dir),
		attribute.Int("data.max_rows", maxRows),
	))
	defer span.End()

	tables := make(activity.Tables, len(activity.Sources))
	for _, source := range activity.Sources {
		table, err := l.loadSource(ctx, dir, source, maxRows)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		tables[source] = table
		span.SetAttributes(attribute.Int("rows."+string(source), table.Len()))
	}
	return tables, nil
}

func (l *Loader) loadSource(ctx context.Context, dir string, source activity.Source, maxRows int) (*activity.Table, error) {
	path := filepath.Join(dir, source.FileName())

	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			missing := errors.NewMissingInputError(string(source), path)
			l.logger.DebugContext(ctx, "source log missing, using empty table",
				"source", source, "code", missing.Code, "path", path)
			return activity.NewTable(source), nil
		}
		return nil, errors.NewInternalError(fmt.Sprintf("open %s log", source)).WithCause(err)
	}
	defer f.Close()

	header, rows, err := readCSV(f, maxRows)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("read %s log", source)).WithCause(err)
	}

	table, issues := Normalize(source, header, rows)
	for _, issue := range issues {
		l.logger.WarnContext(ctx, "schema ambiguity, applying default",
			"source", source,
			"field", issue.Details["field"],
			"error", issue.Message,
		)
	}

	l.logger.InfoContext(ctx, "source log loaded",
		"source", source,
		"rows", table.Len(),
		"has_actor", table.HasActor,
	)
	return table, nil
}

// readCSV returns the header and at most maxRows data rows. An empty file
// yields no header and no rows.
func readCSV(r io.Reader, maxRows int) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	rows := make([][]string, 0, min(maxRows, 1024))
	for len(rows) < maxRows {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}
