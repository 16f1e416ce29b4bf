// Package insider runs the detection pipeline end to end and serves the
// investigator queries from an immutable, atomically swapped state.
package insider

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/errors"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/training"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/snapshot"
)

type service struct {
	cfg   Config
	deps  Dependencies
	state atomic.Pointer[State]
	// mu serializes writers; readers only load state.
	mu     sync.Mutex
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates the insider risk service.
func NewService(cfg Config, deps Dependencies) (Service, error) {
	if deps.Loader == nil || deps.Aggregator == nil || deps.Scorer == nil {
		return nil, errors.NewValidationError("INVALID_DEPENDENCIES", "loader, aggregator and scorer are required")
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("component", "insider"),
		tracer: otel.Tracer("service.insider"),
		now:    time.Now,
	}, nil
}

// LoadData replaces the current state with freshly normalized tables and an
// unscored matrix. Any previously fitted model is discarded.
func (s *service) LoadData(ctx context.Context, dir string, maxRows int) (*features.Matrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx, dir, maxRows)
	if err != nil {
		return nil, err
	}
	s.state.Store(st)
	return st.Matrix, nil
}

// Train scores the loaded matrix. With persist set, the snapshot is written
// before the new state becomes visible and a failed write leaves the old
// state in place.
func (s *service) Train(ctx context.Context, persist bool) (*features.Matrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.train(ctx, s.state.Load(), persist)
	if err != nil {
		return nil, err
	}
	s.state.Store(st)
	return st.Matrix, nil
}

// Refresh reloads the configured data directory and retrains. Readers keep
// seeing the previous state until the whole pipeline has succeeded.
func (s *service) Refresh(ctx context.Context) (*features.Matrix, error) {
	ctx, span := s.tracer.Start(ctx, "insider.Refresh")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.refresh(ctx)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordRefresh(ctx, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		s.logger.ErrorContext(ctx, "refresh failed", "error", err)
		s.notify(ctx, training.NewRefreshFailedEvent(err))
		return nil, err
	}

	s.state.Store(st)
	s.notify(ctx, training.NewRefreshedEvent(st.RunID, st.Matrix.Len()))
	return st.Matrix, nil
}

func (s *service) refresh(ctx context.Context) (*State, error) {
	loaded, err := s.load(ctx, s.cfg.DataDir, s.cfg.MaxRows)
	if err != nil {
		return nil, err
	}
	return s.train(ctx, loaded, true)
}

// Bootstrap restores the persisted state, falling back to a full refresh
// when no snapshot exists. A snapshot that exists but cannot be decoded is
// an error rather than a reason to retrain silently.
func (s *service) Bootstrap(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "insider.Bootstrap")
	defer span.End()

	if s.deps.Store == nil {
		s.logger.InfoContext(ctx, "no snapshot store configured, training from source data")
		_, err := s.Refresh(ctx)
		return err
	}

	data, err := s.deps.Store.Load(ctx)
	s.recordSnapshot(ctx, snapshotOpLoad, err)
	if stderrors.Is(err, snapshot.ErrNotFound) {
		s.logger.InfoContext(ctx, "no snapshot found, training from source data",
			"location", s.deps.Store.Location())
		_, err := s.Refresh(ctx)
		return err
	}
	if err != nil {
		return errors.NewPersistenceError("failed to read model snapshot").
			WithCause(err).
			WithDetails(map[string]interface{}{"location": s.deps.Store.Location()})
	}

	st, err := decodeState(data)
	if err != nil {
		return errors.NewPersistenceError("model snapshot is corrupt").
			WithCause(err).
			WithDetails(map[string]interface{}{"location": s.deps.Store.Location()})
	}

	s.mu.Lock()
	s.state.Store(st)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "model restored from snapshot",
		"location", s.deps.Store.Location(),
		"run_id", st.RunID,
		"users", st.Matrix.Len())
	return nil
}

func (s *service) load(ctx context.Context, dir string, maxRows int) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "insider.LoadData")
	defer span.End()

	tables, err := s.deps.Loader.Load(ctx, dir, maxRows)
	if err != nil {
		return nil, errors.Wrap(err, "load activity logs")
	}
	m, err := s.deps.Aggregator.Aggregate(ctx, tables)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate features")
	}

	span.SetAttributes(attribute.String("data.dir", dir), attribute.Int("matrix.users", m.Len()))
	return &State{
		DataDir: dir,
		MaxRows: maxRows,
		Tables:  tables,
		Matrix:  m,
	}, nil
}

func (s *service) train(ctx context.Context, current *State, persist bool) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "insider.Train")
	defer span.End()

	if current == nil || current.Matrix == nil {
		return nil, errors.NewUntrainedStateError("no feature matrix loaded; call LoadData first")
	}
	if current.Matrix.Len() == 0 {
		return nil, errors.NewValidationError("EMPTY_MATRIX", "feature matrix has no rows")
	}

	started := s.now()
	scored, forest, err := s.deps.Scorer.Score(ctx, current.Matrix)
	if err != nil {
		return nil, err
	}
	took := s.now().Sub(started)

	next := &State{
		RunID:     uuid.New(),
		TrainedAt: started.UTC(),
		DataDir:   current.DataDir,
		MaxRows:   current.MaxRows,
		Tables:    current.Tables,
		Matrix:    scored,
		Forest:    forest,
	}

	location := ""
	if persist && s.deps.Store != nil {
		if err := s.persist(ctx, next); err != nil {
			return nil, err
		}
		location = s.deps.Store.Location()
	}

	run := training.NewRun(next.RunID, started, took, scored, s.cfg.Contamination, s.cfg.Seed)
	run.SnapshotLocation = location
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordTraining(ctx, took, run.Users, run.Anomalies)
	}
	if s.deps.Runs != nil {
		if err := s.deps.Runs.Save(ctx, run); err != nil {
			s.logger.WarnContext(ctx, "failed to record training run", "run_id", run.ID, "error", err)
		}
	}

	span.SetAttributes(
		attribute.String("run.id", next.RunID.String()),
		attribute.Int("run.users", run.Users),
		attribute.Int("run.anomalies", run.Anomalies),
	)
	s.logger.InfoContext(ctx, "model trained",
		"run_id", next.RunID,
		"users", run.Users,
		"anomalies", run.Anomalies,
		"top_user", run.TopUser,
		"duration", took)
	return next, nil
}

func (s *service) persist(ctx context.Context, st *State) error {
	data, err := encodeState(st)
	if err != nil {
		return errors.NewPersistenceError("failed to encode model snapshot").WithCause(err)
	}
	err = s.deps.Store.Save(ctx, data)
	s.recordSnapshot(ctx, snapshotOpSave, err)
	if err != nil {
		return errors.NewPersistenceError(fmt.Sprintf("failed to write model snapshot to %s", s.deps.Store.Location())).WithCause(err)
	}
	return nil
}

func (s *service) recordSnapshot(ctx context.Context, op string, err error) {
	if s.deps.Metrics == nil {
		return
	}
	if stderrors.Is(err, snapshot.ErrNotFound) {
		err = nil
	}
	s.deps.Metrics.RecordSnapshot(ctx, op, err)
}

func (s *service) notify(ctx context.Context, event training.Event) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Publish(ctx, event)
	}
}

func (s *service) Status(ctx context.Context) Status {
	st := s.state.Load()
	status := Status{}
	if s.deps.Store != nil {
		status.Snapshot = s.deps.Store.Location()
	}
	if st == nil {
		return status
	}

	status.Loaded = st.Tables.Loaded()
	status.Users = st.Matrix.Len()
	status.DataDir = st.DataDir
	if st.trained() {
		status.Trained = true
		status.RunID = st.RunID.String()
		at := st.TrainedAt
		status.TrainedAt = &at
		for _, a := range st.Matrix.Anomalous {
			if a {
				status.Anomalies++
			}
		}
	}
	return status
}

func (s *service) Runs(ctx context.Context, limit int) ([]*training.Run, error) {
	if s.deps.Runs == nil {
		return []*training.Run{}, nil
	}
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	if limit > MaxRunLimit {
		limit = MaxRunLimit
	}
	runs, err := s.deps.Runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to list training runs").WithCause(err)
	}
	return runs, nil
}
