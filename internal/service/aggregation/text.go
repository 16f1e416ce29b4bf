package aggregation

import (
	"strings"
	"unicode/utf8"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
)

// textSignals derives subject-line features per sender. Without a subject
// column every sender still gets the columns, zeroed.
func textSignals(email *activity.Table, keywords []string) *features.Table {
	out := features.NewTable(features.ColumnSubjectLen, features.ColumnKeywordFlag, features.ColumnSentiment)
	if email.Empty() || !email.HasActor {
		return out
	}

	hasSubject := email.HasColumn(activity.ColumnSubject)

	type acc struct {
		length  float64
		flagged float64
		count   int
	}
	stats := make(map[string]*acc)
	for _, r := range email.Records {
		if r.User == "" {
			continue
		}
		a, ok := stats[r.User]
		if !ok {
			a = &acc{}
			stats[r.User] = a
		}
		if !hasSubject {
			continue
		}
		subject, _ := r.Subject()
		a.length += float64(utf8.RuneCountInString(subject))
		if containsKeyword(subject, keywords) {
			a.flagged++
		}
		a.count++
	}

	for user, a := range stats {
		if a.count == 0 {
			out.Set(user, 0, 0, NeutralSentiment)
			continue
		}
		n := float64(a.count)
		out.Set(user, a.length/n, a.flagged/n, NeutralSentiment)
	}
	return out
}

func containsKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
