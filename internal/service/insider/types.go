package insider

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/scoring"
)

// State is everything a query needs: the normalized tables, the feature
// matrix and, once trained, the fitted forest. A State is never mutated
// after it has been published.
type State struct {
	RunID     uuid.UUID
	TrainedAt time.Time
	DataDir   string
	MaxRows   int
	Tables    activity.Tables
	Matrix    *features.Matrix
	Forest    *scoring.Forest
}

func (s *State) trained() bool {
	return s != nil && s.Forest != nil && s.Matrix.Scored()
}

// DailyFeatures is one row of a user's activity timeline.
type DailyFeatures struct {
	Date     string  `json:"date"`
	Logons   int     `json:"logons"`
	Files    int     `json:"files"`
	USB      int     `json:"usb"`
	Emails   int     `json:"emails"`
	MeanRisk float64 `json:"mean_risk"`
	User     string  `json:"user"`
}

type Status struct {
	Loaded    bool       `json:"loaded"`
	Trained   bool       `json:"trained"`
	Users     int        `json:"users"`
	Anomalies int        `json:"anomalies"`
	RunID     string     `json:"run_id,omitempty"`
	TrainedAt *time.Time `json:"trained_at,omitempty"`
	DataDir   string     `json:"data_dir,omitempty"`
	Snapshot  string     `json:"snapshot,omitempty"`
}

type Config struct {
	DataDir string
	MaxRows int
	TopN    int
	// Contamination and Seed are copied into run history.
	Contamination float64
	Seed          uint64
}

// Dependencies wires the service. Loader, Aggregator and Scorer are
// required; the rest are optional.
type Dependencies struct {
	Loader     Loader
	Aggregator Aggregator
	Scorer     Scorer
	Store      SnapshotStore
	Runs       RunRecorder
	Notifier   Notifier
	Metrics    MetricsCollector
	Logger     *slog.Logger
}
