package ingest

import (
	"strings"
	"time"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
)

// ParseTimestamp coerces a log cell into a timestamp. Cells that match no
// known layout come back invalid rather than failing the load.
func ParseTimestamp(value string) activity.Timestamp {
	value = strings.TrimSpace(value)
	if value == "" {
		return activity.Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return activity.Timestamp{Time: t, Valid: true}
		}
	}
	return activity.Timestamp{}
}

// DateOf derives the calendar date used for daily aggregation.
func DateOf(ts activity.Timestamp) string {
	if !ts.Valid {
		return ""
	}
	return ts.Time.Format(activity.DateLayout)
}
