package insider

import (
	"context"
	"sort"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
)

// RiskyUsers returns up to topN matrix records in rank order.
func (s *service) RiskyUsers(ctx context.Context, topN int) []features.Record {
	if topN <= 0 {
		topN = s.cfg.TopN
	}

	st := s.state.Load()
	if !st.trained() {
		return []features.Record{}
	}

	order := st.Matrix.RankOrder()
	if topN < len(order) {
		order = order[:topN]
	}
	out := make([]features.Record, 0, len(order))
	for _, i := range order {
		out = append(out, st.Matrix.Record(i))
	}
	return out
}

// UserFeatures builds the per-day activity timeline for user. Records with
// an invalid timestamp carry no date and are left out.
func (s *service) UserFeatures(ctx context.Context, user string) []DailyFeatures {
	st := s.state.Load()
	if st == nil || !st.Tables.Loaded() {
		return []DailyFeatures{}
	}

	days := make(map[string]*DailyFeatures)
	count := func(source activity.Source, inc func(*DailyFeatures)) {
		for _, r := range st.Tables.Get(source).ForUser(user) {
			if r.Date == "" {
				continue
			}
			d, ok := days[r.Date]
			if !ok {
				d = &DailyFeatures{Date: r.Date, User: user}
				days[r.Date] = d
			}
			inc(d)
		}
	}
	count(activity.SourceLogon, func(d *DailyFeatures) { d.Logons++ })
	count(activity.SourceFile, func(d *DailyFeatures) { d.Files++ })
	count(activity.SourceDevice, func(d *DailyFeatures) { d.USB++ })
	count(activity.SourceEmail, func(d *DailyFeatures) { d.Emails++ })

	risk := 0.0
	if st.Matrix.Scored() {
		if i, ok := st.Matrix.Index(user); ok {
			risk = st.Matrix.Scores[i]
		}
	}

	out := make([]DailyFeatures, 0, len(days))
	for _, d := range days {
		d.MeanRisk = risk
		out = append(out, *d)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date < out[b].Date })
	return out
}

// UserRaw returns every record of user grouped by source. Each source key
// is present, with an empty slice when nothing matches.
func (s *service) UserRaw(ctx context.Context, user string) map[string][]map[string]any {
	st := s.state.Load()
	if st == nil || !st.Tables.Loaded() {
		return map[string][]map[string]any{}
	}

	out := make(map[string][]map[string]any, len(activity.Sources))
	for _, source := range activity.Sources {
		records := st.Tables.Get(source).ForUser(user)
		rows := make([]map[string]any, 0, len(records))
		for _, r := range records {
			rows = append(rows, r.Raw())
		}
		out[source.String()] = rows
	}
	return out
}
