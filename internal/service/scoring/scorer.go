// Package scoring fits an isolation forest over the feature matrix and
// derives the standardized score, rank and anomaly flag per user.
package scoring

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/stat"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/errors"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
)

type Scorer struct {
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
}

// NewScorer validates cfg and returns a scorer.
func NewScorer(cfg Config, logger *slog.Logger) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewValidationError("INVALID_MODEL_CONFIG", "invalid isolation forest configuration").WithCause(err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		cfg:    cfg,
		logger: logger.With("component", "scoring"),
		tracer: otel.Tracer("service.scoring"),
	}, nil
}

func (s *Scorer) Config() Config {
	return s.cfg
}

// Score fits a forest on m and returns a scored copy of m together with the
// fitted forest. m itself is left untouched.
func (s *Scorer) Score(ctx context.Context, m *features.Matrix) (*features.Matrix, *Forest, error) {
	ctx, span := s.tracer.Start(ctx, "scoring.Score")
	defer span.End()

	if m == nil || m.Len() == 0 {
		return nil, nil, errors.NewValidationError("EMPTY_MATRIX", "feature matrix has no rows")
	}

	X := m.Vectors()
	forest, err := Fit(ctx, s.cfg, X)
	if err != nil {
		return nil, nil, errors.NewInternalError("isolation forest fit failed").WithCause(err)
	}

	raw := forest.Decision(X)
	scores := Standardize(raw)
	ranks := Ranks(scores)
	anomalous := make([]bool, len(raw))
	flagged := 0
	for i, r := range raw {
		if r > 0 {
			anomalous[i] = true
			flagged++
		}
	}

	scored, err := m.WithScores(scores, ranks, anomalous)
	if err != nil {
		return nil, nil, errors.NewInternalError("attach scores").WithCause(err)
	}

	span.SetAttributes(
		attribute.Int("scoring.users", m.Len()),
		attribute.Int("scoring.anomalies", flagged),
		attribute.Float64("scoring.threshold", forest.Threshold),
	)
	s.logger.InfoContext(ctx, "matrix scored",
		"users", m.Len(),
		"anomalies", flagged,
		"trees", forest.NumTrees,
		"sample_size", forest.SampleSize,
	)
	return scored, forest, nil
}

// Standardize maps x to zero mean and unit population variance. Constant
// input maps to zeros.
func Standardize(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	mean, std := stat.PopMeanStdDev(x, nil)
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out
}

// Ranks returns 1-based ranks by descending score. Ties keep index order so
// the result is always a permutation of 1..len(scores).
func Ranks(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	ranks := make([]int, len(scores))
	for pos, i := range idx {
		ranks[i] = pos + 1
	}
	return ranks
}
