package insider

import (
	"context"
	"time"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/training"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/scoring"
)

// Service owns the fitted model state and answers investigator queries.
type Service interface {
	// Pipeline
	LoadData(ctx context.Context, dir string, maxRows int) (*features.Matrix, error)
	Train(ctx context.Context, persist bool) (*features.Matrix, error)
	Refresh(ctx context.Context) (*features.Matrix, error)
	Bootstrap(ctx context.Context) error

	// Queries never fail; missing state yields empty results.
	RiskyUsers(ctx context.Context, topN int) []features.Record
	UserFeatures(ctx context.Context, user string) []DailyFeatures
	UserRaw(ctx context.Context, user string) map[string][]map[string]any
	Status(ctx context.Context) Status
	Runs(ctx context.Context, limit int) ([]*training.Run, error)
}

type Loader interface {
	Load(ctx context.Context, dir string, maxRows int) (activity.Tables, error)
}

type Aggregator interface {
	Aggregate(ctx context.Context, tables activity.Tables) (*features.Matrix, error)
}

type Scorer interface {
	Score(ctx context.Context, m *features.Matrix) (*features.Matrix, *scoring.Forest, error)
}

// SnapshotStore persists the encoded state blob.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Location() string
}

type RunRecorder interface {
	Save(ctx context.Context, run *training.Run) error
	ListRecent(ctx context.Context, limit int) ([]*training.Run, error)
}

type Notifier interface {
	Publish(ctx context.Context, event training.Event)
}

type MetricsCollector interface {
	RecordTraining(ctx context.Context, duration time.Duration, users, anomalies int)
	RecordSnapshot(ctx context.Context, op string, err error)
	RecordRefresh(ctx context.Context, err error)
}
