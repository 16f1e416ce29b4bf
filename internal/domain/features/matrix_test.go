package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	t.Run("outer join fills missing cells with zero", func(t *testing.T) {
		login := NewTable(ColumnMeanLoginHour, ColumnMeanLogoutHour)
		login.Set("alice", 9, 17)

		files := NewTable(ColumnFilesPerDay)
		files.Set("bob", 4)

		m := Merge(login, files)

		require.Equal(t, []string{"alice", "bob"}, m.Users)
		assert.Equal(t, []string{ColumnMeanLoginHour, ColumnMeanLogoutHour, ColumnFilesPerDay}, m.Columns)
		assert.Equal(t, []float64{9, 17, 0}, m.Values[0])
		assert.Equal(t, []float64{0, 0, 4}, m.Values[1])
	})

	t.Run("empty tables keep their columns", func(t *testing.T) {
		m := Merge(NewTable(ColumnMeanLoginHour), NewTable(ColumnDegreeCentrality, ColumnBetweennessCentrality))

		assert.Equal(t, 0, m.Len())
		assert.Equal(t, []string{ColumnMeanLoginHour, ColumnDegreeCentrality, ColumnBetweennessCentrality}, m.Columns)
		assert.False(t, m.Scored())
	})

	t.Run("users are sorted and unique", func(t *testing.T) {
		a := NewTable(ColumnFilesPerDay)
		a.Set("carol", 1)
		a.Set("alice", 2)
		b := NewTable(ColumnUSBPerDay)
		b.Set("alice", 3)

		m := Merge(a, b)
		assert.Equal(t, []string{"alice", "carol"}, m.Users)
	})
}

func TestTable_SetPanicsOnWidthMismatch(t *testing.T) {
	tbl := NewTable(ColumnSubjectLen, ColumnKeywordFlag)
	assert.Panics(t, func() { tbl.Set("alice", 1) })
}

func TestMatrix_WithScores(t *testing.T) {
	tbl := NewTable(ColumnFilesPerDay)
	tbl.Set("alice", 1)
	tbl.Set("bob", 2)
	m := Merge(tbl)

	scored, err := m.WithScores([]float64{-1, 1}, []int{2, 1}, []bool{false, true})
	require.NoError(t, err)

	assert.False(t, m.Scored(), "original matrix must not be mutated")
	assert.True(t, scored.Scored())
	assert.Equal(t, []int{1, 0}, scored.RankOrder())

	rec := scored.Record(1)
	assert.Equal(t, "bob", rec[ColumnUser])
	assert.Equal(t, 1.0, rec[ColumnScore])
	assert.Equal(t, 1, rec[ColumnRank])
	assert.Equal(t, true, rec[ColumnAnomalous])
	assert.Equal(t, 2.0, rec[ColumnFilesPerDay])

	assert.Equal(t, []string{ColumnUser, ColumnFilesPerDay, ColumnScore, ColumnRank, ColumnAnomalous}, scored.Header())

	_, err = m.WithScores([]float64{1}, []int{1}, []bool{false})
	assert.Error(t, err)
}

func TestMatrix_Lookup(t *testing.T) {
	tbl := NewTable(ColumnFilesPerDay, ColumnUSBPerDay)
	tbl.Set("alice", 3, 5)
	m := Merge(tbl)

	v, ok := m.Value("alice", ColumnUSBPerDay)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)

	_, ok = m.Value("mallory", ColumnUSBPerDay)
	assert.False(t, ok)

	_, ok = m.Value("alice", "nope")
	assert.False(t, ok)

	var nilMatrix *Matrix
	assert.Equal(t, 0, nilMatrix.Len())
	_, ok = nilMatrix.Index("alice")
	assert.False(t, ok)
}
