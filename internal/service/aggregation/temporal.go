package aggregation

import (
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
)

// loginHabits computes mean login hour and the latest hour seen, the latter
// standing in for the logout hour.
func loginHabits(logon *activity.Table) *features.Table {
	out := features.NewTable(features.ColumnMeanLoginHour, features.ColumnMeanLogoutHour)
	if logon.Empty() || !logon.HasActor {
		return out
	}

	type acc struct {
		sum   float64
		count int
		max   int
	}
	stats := make(map[string]*acc)
	for _, r := range logon.Records {
		if r.User == "" {
			continue
		}
		a, ok := stats[r.User]
		if !ok {
			a = &acc{max: -1}
			stats[r.User] = a
		}
		hour, ok := r.Hour()
		if !ok {
			continue
		}
		a.sum += float64(hour)
		a.count++
		if hour > a.max {
			a.max = hour
		}
	}

	for user, a := range stats {
		if a.count == 0 {
			out.Set(user, 0, 0)
			continue
		}
		out.Set(user, a.sum/float64(a.count), float64(a.max))
	}
	return out
}

// afterHours counts logon records that fall outside the working window.
func afterHours(logon *activity.Table) *features.Table {
	out := features.NewTable(features.ColumnOutOfSessionAccess)
	if logon.Empty() || !logon.HasActor {
		return out
	}

	counts := make(map[string]int)
	for _, r := range logon.Records {
		if r.User == "" {
			continue
		}
		if _, ok := counts[r.User]; !ok {
			counts[r.User] = 0
		}
		if hour, ok := r.Hour(); ok && IsAfterHours(hour) {
			counts[r.User]++
		}
	}
	for user, n := range counts {
		out.Set(user, float64(n))
	}
	return out
}

// IsAfterHours reports whether hour lies in [0,6) or [20,24).
func IsAfterHours(hour int) bool {
	return hour < AfterHoursEnd || hour >= AfterHoursStart
}
