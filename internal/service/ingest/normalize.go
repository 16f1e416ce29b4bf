package ingest

import (
	"strings"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/errors"
)

// Normalize reconciles one raw CSV (header plus rows) into the canonical
// schema. Missing timestamp, actor or recipient columns never fail: they are
// filled by policy and reported back as schema-ambiguity issues.
func Normalize(source activity.Source, header []string, rows [][]string) (*activity.Table, []*errors.AppError) {
	var issues []*errors.AppError

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	table := activity.NewTable(source)

	tsIdx := firstIndex(columns, TimestampColumns...)
	if tsIdx < 0 && len(rows) > 0 {
		issues = append(issues, errors.NewSchemaAmbiguityError(string(source), activity.ColumnTimestamp, TimestampColumns))
	}

	actorIdx := firstIndex(columns, activity.ColumnUser)
	if actorIdx < 0 {
		actorIdx = firstIndex(columns, ActorAliases...)
		if actorIdx >= 0 {
			columns[actorIdx] = activity.ColumnUser
		}
	}
	table.HasActor = actorIdx >= 0
	if !table.HasActor && len(columns) > 0 {
		issues = append(issues, errors.NewSchemaAmbiguityError(string(source), activity.ColumnUser,
			append([]string{activity.ColumnUser}, ActorAliases...)))
	}

	fillRecipient := false
	if source == activity.SourceEmail {
		if firstIndex(columns, activity.ColumnRecipient) < 0 {
			if idx := firstIndex(columns, RecipientAliases...); idx >= 0 {
				columns[idx] = activity.ColumnRecipient
			} else {
				fillRecipient = true
				issues = append(issues, errors.NewSchemaAmbiguityError(string(source), activity.ColumnRecipient,
					append([]string{activity.ColumnRecipient}, RecipientAliases...)))
			}
		}
	}

	records := make([]activity.Record, 0, len(rows))
	for _, row := range rows {
		fields := make(map[string]string, len(columns)+1)
		for i, c := range columns {
			if i < len(row) {
				fields[c] = row[i]
			} else {
				fields[c] = ""
			}
		}
		if fillRecipient {
			fields[activity.ColumnRecipient] = activity.UnknownRecipient
		}

		var ts activity.Timestamp
		if tsIdx >= 0 {
			if tsIdx < len(row) {
				ts = ParseTimestamp(row[tsIdx])
			}
		} else {
			ts = activity.Timestamp{Time: activity.SentinelTimestamp, Valid: true}
		}

		var user string
		if actorIdx >= 0 && actorIdx < len(row) {
			user = strings.TrimSpace(row[actorIdx])
		}

		records = append(records, activity.Record{
			User:      user,
			Timestamp: ts,
			Date:      DateOf(ts),
			Fields:    fields,
		})
	}

	table.Columns = appendMissing(columns, activity.ColumnTimestamp, activity.ColumnDate)
	if fillRecipient {
		table.Columns = appendMissing(table.Columns, activity.ColumnRecipient)
	}
	table.Records = records
	return table, issues
}

func firstIndex(columns []string, candidates ...string) int {
	for _, want := range candidates {
		for i, c := range columns {
			if c == want {
				return i
			}
		}
	}
	return -1
}

func appendMissing(columns []string, names ...string) []string {
	out := append([]string(nil), columns...)
	for _, n := range names {
		if firstIndex(out, n) < 0 {
			out = append(out, n)
		}
	}
	return out
}
