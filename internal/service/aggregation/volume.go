package aggregation

import (
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
)

// volume counts the timestamped records per user over the whole loaded
// window. The column keeps its historical "_per_day" name although the
// value is a window total.
func volume(table *activity.Table, column string) *features.Table {
	out := features.NewTable(column)
	if table.Empty() || !table.HasActor {
		return out
	}

	counts := make(map[string]int)
	for _, r := range table.Records {
		if r.User == "" {
			continue
		}
		if r.Timestamp.Valid {
			counts[r.User]++
		} else if _, ok := counts[r.User]; !ok {
			counts[r.User] = 0
		}
	}
	for user, n := range counts {
		out.Set(user, float64(n))
	}
	return out
}
