package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	for _, s := range Sources {
		got, err := ParseSource(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseSource("http")
	assert.Error(t, err)
	assert.Equal(t, "email.csv", SourceEmail.FileName())
}

func TestRecord_Raw(t *testing.T) {
	ts := time.Date(2010, time.January, 2, 6, 49, 0, 0, time.UTC)
	r := Record{
		User:      "alice",
		Timestamp: Timestamp{Time: ts, Valid: true},
		Date:      "2010-01-02",
		Fields:    map[string]string{"pc": "PC-1", "activity": "Logon"},
	}

	raw := r.Raw()
	assert.Equal(t, "alice", raw[ColumnUser])
	assert.Equal(t, "2010-01-02 06:49:00", raw[ColumnTimestamp])
	assert.Equal(t, "2010-01-02", raw[ColumnDate])
	assert.Equal(t, "PC-1", raw["pc"])

	hour, ok := r.Hour()
	assert.True(t, ok)
	assert.Equal(t, 6, hour)

	invalid := Record{User: "bob"}
	_, ok = invalid.Hour()
	assert.False(t, ok)
	assert.Equal(t, "", invalid.Raw()[ColumnTimestamp])
}

func TestTable_ForUser(t *testing.T) {
	tbl := NewTable(SourceDevice)
	tbl.HasActor = true
	tbl.Records = []Record{{User: "alice"}, {User: "bob"}, {User: "alice"}, {User: ""}}

	assert.Len(t, tbl.ForUser("alice"), 2)
	assert.Empty(t, tbl.ForUser("carol"))
	assert.Empty(t, tbl.ForUser(""), "blank actor cells belong to nobody")

	tbl.HasActor = false
	assert.Empty(t, tbl.ForUser("alice"))
}

func TestTables_Get(t *testing.T) {
	ts := Tables{}
	assert.False(t, ts.Loaded())

	got := ts.Get(SourceFile)
	require.NotNil(t, got)
	assert.True(t, got.Empty())
	assert.Equal(t, SourceFile, got.Source)
}
