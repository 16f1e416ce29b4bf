package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
)

func at(hour int) activity.Timestamp {
	return activity.Timestamp{Time: time.Date(2010, 1, 4, hour, 15, 0, 0, time.UTC), Valid: true}
}

func table(source activity.Source, records ...activity.Record) *activity.Table {
	t := activity.NewTable(source)
	t.HasActor = true
	t.Columns = []string{activity.ColumnUser, activity.ColumnTimestamp, activity.ColumnDate}
	t.Records = records
	return t
}

func email(user, to, subject string, hour int) activity.Record {
	return activity.Record{
		User:      user,
		Timestamp: at(hour),
		Date:      "2010-01-04",
		Fields:    map[string]string{activity.ColumnRecipient: to, activity.ColumnSubject: subject},
	}
}

func cell(t *testing.T, m *features.Matrix, user, column string) float64 {
	t.Helper()
	v, ok := m.Value(user, column)
	require.True(t, ok, "missing %s/%s", user, column)
	return v
}

func TestAggregator_EmptyInput(t *testing.T) {
	m, err := NewAggregator(nil).Aggregate(context.Background(), activity.Tables{})
	require.NoError(t, err)

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, features.Columns, m.Columns)
}

func TestAggregator_AfterHoursLogon(t *testing.T) {
	tables := activity.Tables{
		activity.SourceLogon: table(activity.SourceLogon, activity.Record{User: "alice", Timestamp: at(3), Date: "2010-01-04"}),
	}

	m, err := NewAggregator(nil).Aggregate(context.Background(), tables)
	require.NoError(t, err)

	require.Equal(t, []string{"alice"}, m.Users)
	assert.Equal(t, 1.0, cell(t, m, "alice", features.ColumnOutOfSessionAccess))
	assert.Equal(t, 3.0, cell(t, m, "alice", features.ColumnMeanLoginHour))
	assert.Equal(t, 3.0, cell(t, m, "alice", features.ColumnMeanLogoutHour))
}

func TestAggregator_LoginHabits(t *testing.T) {
	tables := activity.Tables{
		activity.SourceLogon: table(activity.SourceLogon,
			activity.Record{User: "bob", Timestamp: at(8)},
			activity.Record{User: "bob", Timestamp: at(10)},
			activity.Record{User: "bob", Timestamp: at(21)},
			activity.Record{User: "bob"},
		),
	}

	m, err := NewAggregator(nil).Aggregate(context.Background(), tables)
	require.NoError(t, err)

	assert.InDelta(t, 13.0, cell(t, m, "bob", features.ColumnMeanLoginHour), 1e-9)
	assert.Equal(t, 21.0, cell(t, m, "bob", features.ColumnMeanLogoutHour))
	assert.Equal(t, 1.0, cell(t, m, "bob", features.ColumnOutOfSessionAccess))
}

func TestAggregator_DegreeCentrality(t *testing.T) {
	var sent []activity.Record
	for i := 0; i < 10; i++ {
		sent = append(sent, email("alice", "bob", "status", 9))
	}
	tables := activity.Tables{
		activity.SourceEmail: table(activity.SourceEmail, sent...),
		activity.SourceFile:  table(activity.SourceFile, activity.Record{User: "carol", Timestamp: at(11)}),
	}

	m, err := NewAggregator(nil).Aggregate(context.Background(), tables)
	require.NoError(t, err)

	require.Equal(t, []string{"alice", "bob", "carol"}, m.Users)
	assert.Equal(t, 1.0, cell(t, m, "alice", features.ColumnDegreeCentrality))
	assert.Equal(t, 1.0, cell(t, m, "bob", features.ColumnDegreeCentrality))
	assert.Equal(t, 0.0, cell(t, m, "carol", features.ColumnDegreeCentrality))
	assert.Equal(t, 0.0, cell(t, m, "alice", features.ColumnBetweennessCentrality))
	assert.Equal(t, 10.0, cell(t, m, "alice", features.ColumnEmailsPerDay))
	assert.Equal(t, 0.0, cell(t, m, "bob", features.ColumnEmailsPerDay))
}

func TestAggregator_TextSignals(t *testing.T) {
	tables := activity.Tables{
		activity.SourceEmail: table(activity.SourceEmail,
			email("alice", "bob", "CONFIDENTIAL plan", 9),
			email("alice", "bob", "lunch", 12),
			email("dave", "bob", "", 12),
		),
	}
	tables[activity.SourceEmail].Columns = append(tables[activity.SourceEmail].Columns, activity.ColumnSubject, activity.ColumnRecipient)

	m, err := NewAggregator(nil).Aggregate(context.Background(), tables)
	require.NoError(t, err)

	assert.InDelta(t, 11.0, cell(t, m, "alice", features.ColumnSubjectLen), 1e-9)
	assert.InDelta(t, 0.5, cell(t, m, "alice", features.ColumnKeywordFlag), 1e-9)
	assert.Equal(t, 0.0, cell(t, m, "alice", features.ColumnSentiment))
	assert.Equal(t, 0.0, cell(t, m, "dave", features.ColumnSubjectLen))
}

func TestAggregator_NoSubjectColumnStillEmitsTextColumns(t *testing.T) {
	tables := activity.Tables{
		activity.SourceEmail: table(activity.SourceEmail, email("alice", "bob", "ignored", 9)),
	}

	m, err := NewAggregator(nil).Aggregate(context.Background(), tables)
	require.NoError(t, err)

	assert.Equal(t, 0.0, cell(t, m, "alice", features.ColumnSubjectLen))
	assert.Equal(t, 0.0, cell(t, m, "alice", features.ColumnKeywordFlag))
}

func TestAggregator_MergeCompleteness(t *testing.T) {
	tables := activity.Tables{
		activity.SourceLogon:  table(activity.SourceLogon, activity.Record{User: "a", Timestamp: at(9)}),
		activity.SourceDevice: table(activity.SourceDevice, activity.Record{User: "b", Timestamp: at(9)}),
		activity.SourceFile:   table(activity.SourceFile, activity.Record{User: "c"}),
		activity.SourceEmail:  table(activity.SourceEmail, email("d", "e", "x", 9)),
	}
	noActor := activity.NewTable(activity.SourceDevice)
	noActor.Records = []activity.Record{{Timestamp: at(1)}}

	m, err := NewAggregator(nil).Aggregate(context.Background(), tables)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, m.Users)
	for i := range m.Users {
		assert.Len(t, m.Values[i], len(features.Columns))
	}
	assert.Equal(t, 0.0, cell(t, m, "c", features.ColumnFilesPerDay))

	tables[activity.SourceDevice] = noActor
	m, err = NewAggregator(nil).Aggregate(context.Background(), tables)
	require.NoError(t, err)
	assert.NotContains(t, m.Users, "b")
}

func TestIsAfterHours(t *testing.T) {
	for h := 0; h < 24; h++ {
		want := h < 6 || h >= 20
		assert.Equal(t, want, IsAfterHours(h), "hour %d", h)
	}
}
