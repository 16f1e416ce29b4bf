// Package training describes completed model fits and the events announced
// when the serving model changes.
package training

import (
	"time"

	"github.com/google/uuid"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
)

// Run is the history record of one successful fit.
type Run struct {
	ID               uuid.UUID `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	DurationMS       int64     `json:"duration_ms"`
	Users            int       `json:"users"`
	Anomalies        int       `json:"anomalies"`
	Contamination    float64   `json:"contamination"`
	Seed             int64     `json:"seed"`
	TopUser          string    `json:"top_user,omitempty"`
	TopScore         float64   `json:"top_score"`
	SnapshotLocation string    `json:"snapshot_location,omitempty"`
}

// NewRun summarizes a scored matrix. The top user is the rank-1 row.
func NewRun(id uuid.UUID, started time.Time, took time.Duration, m *features.Matrix, contamination float64, seed uint64) *Run {
	r := &Run{
		ID:            id,
		StartedAt:     started.UTC(),
		DurationMS:    took.Milliseconds(),
		Contamination: contamination,
		Seed:          int64(seed),
	}
	if !m.Scored() {
		return r
	}
	r.Users = m.Len()
	for i, flagged := range m.Anomalous {
		if flagged {
			r.Anomalies++
		}
		if m.Ranks[i] == 1 {
			r.TopUser = m.Users[i]
			r.TopScore = m.Scores[i]
		}
	}
	return r
}
