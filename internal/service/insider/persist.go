package insider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/snapshot"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/scoring"
)

// stateDocument is the persisted form of State. Every field is restored
// explicitly; unknown fields are rejected.
type stateDocument struct {
	Version   int               `json:"version"`
	RunID     uuid.UUID         `json:"run_id"`
	TrainedAt time.Time         `json:"trained_at"`
	DataDir   string            `json:"data_dir"`
	MaxRows   int               `json:"max_rows"`
	Tables    []*activity.Table `json:"tables"`
	Matrix    *features.Matrix  `json:"matrix"`
	Forest    *scoring.Forest   `json:"forest"`
}

func encodeState(st *State) ([]byte, error) {
	doc := stateDocument{
		Version:   stateVersion,
		RunID:     st.RunID,
		TrainedAt: st.TrainedAt,
		DataDir:   st.DataDir,
		MaxRows:   st.MaxRows,
		Matrix:    st.Matrix,
		Forest:    st.Forest,
	}
	for _, source := range activity.Sources {
		if t, ok := st.Tables[source]; ok && t != nil {
			doc.Tables = append(doc.Tables, t)
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return snapshot.Compress(raw)
}

func decodeState(data []byte) (*State, error) {
	raw, err := snapshot.Decompress(data)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var doc stateDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}

	if doc.Version != stateVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}
	if doc.Matrix == nil || !doc.Matrix.Scored() {
		return nil, fmt.Errorf("snapshot has no scored matrix")
	}
	if doc.Forest == nil || len(doc.Forest.Trees) == 0 {
		return nil, fmt.Errorf("snapshot has no fitted forest")
	}
	if len(doc.Matrix.Values) != len(doc.Matrix.Users) {
		return nil, fmt.Errorf("snapshot matrix has %d rows for %d users", len(doc.Matrix.Values), len(doc.Matrix.Users))
	}
	for i, row := range doc.Matrix.Values {
		if len(row) != len(doc.Matrix.Columns) {
			return nil, fmt.Errorf("snapshot matrix row %d has %d values, want %d", i, len(row), len(doc.Matrix.Columns))
		}
	}

	tables := make(activity.Tables, len(doc.Tables))
	for _, t := range doc.Tables {
		if t == nil {
			continue
		}
		if _, err := activity.ParseSource(string(t.Source)); err != nil {
			return nil, fmt.Errorf("snapshot table: %w", err)
		}
		tables[t.Source] = t
	}

	return &State{
		RunID:     doc.RunID,
		TrainedAt: doc.TrainedAt,
		DataDir:   doc.DataDir,
		MaxRows:   doc.MaxRows,
		Tables:    tables,
		Matrix:    doc.Matrix,
		Forest:    doc.Forest,
	}, nil
}
