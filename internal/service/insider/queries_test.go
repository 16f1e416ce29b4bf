package insider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/activity"
)

func TestUserFeatures(t *testing.T) {
	f := newFixture(t, sampleTables())
	ctx := context.Background()
	_, err := f.svc.Refresh(ctx)
	require.NoError(t, err)

	days := f.svc.UserFeatures(ctx, "alice")
	require.Len(t, days, 2)

	assert.Equal(t, "2010-01-04", days[0].Date)
	assert.Equal(t, 1, days[0].Logons)
	assert.Equal(t, 2, days[0].Files)
	assert.Equal(t, 0, days[0].USB)
	assert.Equal(t, 0, days[0].Emails)

	assert.Equal(t, "2010-01-05", days[1].Date)
	assert.Equal(t, 1, days[1].Logons)
	assert.Equal(t, 1, days[1].USB)
	assert.Equal(t, 1, days[1].Emails)

	risky := f.svc.RiskyUsers(ctx, 10)
	var aliceScore float64
	for _, r := range risky {
		if r["user"] == "alice" {
			aliceScore = r["isolation_forest"].(float64)
		}
	}
	for _, d := range days {
		assert.Equal(t, "alice", d.User)
		assert.Equal(t, aliceScore, d.MeanRisk)
	}
}

func TestUserFeatures_SingleAfterHoursLogon(t *testing.T) {
	tables := activity.Tables{
		activity.SourceLogon: tbl(activity.SourceLogon, rec("alice", 4, 3, nil)),
	}
	f := newFixture(t, tables)
	ctx := context.Background()

	m, err := f.svc.LoadData(ctx, testDir, 100)
	require.NoError(t, err)
	v, ok := m.Value("alice", "out_of_session_access")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	days := f.svc.UserFeatures(ctx, "alice")
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].Logons)
	assert.Equal(t, 0.0, days[0].MeanRisk, "unscored matrix has no risk")
}

func TestUserFeatures_SkipsInvalidTimestamps(t *testing.T) {
	bad := activity.Record{User: "alice", Fields: map[string]string{}}
	tables := activity.Tables{
		activity.SourceLogon: tbl(activity.SourceLogon, rec("alice", 4, 9, nil), bad),
	}
	f := newFixture(t, tables)
	ctx := context.Background()
	_, err := f.svc.LoadData(ctx, testDir, 100)
	require.NoError(t, err)

	days := f.svc.UserFeatures(ctx, "alice")
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].Logons)
}

func TestQueries_UnknownUser(t *testing.T) {
	f := newFixture(t, sampleTables())
	ctx := context.Background()
	_, err := f.svc.Refresh(ctx)
	require.NoError(t, err)

	assert.Empty(t, f.svc.UserFeatures(ctx, "mallory"))

	raw := f.svc.UserRaw(ctx, "mallory")
	require.Len(t, raw, len(activity.Sources))
	for _, source := range activity.Sources {
		rows, ok := raw[source.String()]
		assert.True(t, ok, source)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	}
}

func TestQueries_NothingLoaded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.Empty(t, f.svc.RiskyUsers(ctx, 20))
	assert.Empty(t, f.svc.UserFeatures(ctx, "alice"))
	assert.Empty(t, f.svc.UserRaw(ctx, "alice"))
	assert.Equal(t, Status{Snapshot: "mem://snapshot"}, f.svc.Status(ctx))
}

func TestUserRaw(t *testing.T) {
	tables := sampleTables()
	tables[activity.SourceDevice].HasActor = false
	f := newFixture(t, tables)
	ctx := context.Background()
	_, err := f.svc.LoadData(ctx, testDir, 100)
	require.NoError(t, err)

	raw := f.svc.UserRaw(ctx, "alice")
	require.Len(t, raw["logon"], 2)
	assert.Equal(t, "PC-1", raw["logon"][0]["pc"])
	assert.Equal(t, "alice", raw["logon"][0]["user"])
	assert.Equal(t, "2010-01-04 03:00:00", raw["logon"][0]["timestamp"])
	assert.Equal(t, "2010-01-04", raw["logon"][0]["date"])
	assert.Len(t, raw["file"], 2)
	assert.Len(t, raw["email"], 1)
	assert.Empty(t, raw["device"], "tables without an actor column never match")
}

func TestQueries_BlankUser(t *testing.T) {
	tables := activity.Tables{
		activity.SourceLogon: tbl(activity.SourceLogon, rec("alice", 4, 9, nil), rec("", 4, 10, nil)),
		activity.SourceFile:  tbl(activity.SourceFile, rec("", 4, 11, map[string]string{"filename": "a.doc"})),
	}
	f := newFixture(t, tables)
	ctx := context.Background()
	_, err := f.svc.LoadData(ctx, testDir, 100)
	require.NoError(t, err)

	assert.Empty(t, f.svc.UserFeatures(ctx, ""))

	raw := f.svc.UserRaw(ctx, "")
	require.Len(t, raw, len(activity.Sources))
	for _, rows := range raw {
		assert.Empty(t, rows)
	}
}
