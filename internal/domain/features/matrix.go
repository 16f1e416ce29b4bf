// Package features holds the per-user feature matrix and the sparse partial
// tables it is merged from.
package features

import (
	"fmt"
	"math"
	"sort"
)

// Feature column names, in matrix order.
const (
	ColumnUser                  = "user"
	ColumnMeanLoginHour         = "mean_login_hour"
	ColumnMeanLogoutHour        = "mean_logout_hour"
	ColumnFilesPerDay           = "files_per_day"
	ColumnUSBPerDay             = "usb_per_day"
	ColumnEmailsPerDay          = "emails_per_day"
	ColumnOutOfSessionAccess    = "out_of_session_access"
	ColumnDegreeCentrality      = "degree_centrality"
	ColumnBetweennessCentrality = "betweenness_centrality"
	ColumnSubjectLen            = "subject_len"
	ColumnKeywordFlag           = "keyword_flag"
	ColumnSentiment             = "sentiment"

	ColumnScore     = "isolation_forest"
	ColumnRank      = "rank"
	ColumnAnomalous = "anomalous"
)

// Columns is the fixed feature vector layout produced by the aggregator.
var Columns = []string{
	ColumnMeanLoginHour,
	ColumnMeanLogoutHour,
	ColumnFilesPerDay,
	ColumnUSBPerDay,
	ColumnEmailsPerDay,
	ColumnOutOfSessionAccess,
	ColumnDegreeCentrality,
	ColumnBetweennessCentrality,
	ColumnSubjectLen,
	ColumnKeywordFlag,
	ColumnSentiment,
}

// Table is a sparse partial feature table keyed by user. Its column set is
// fixed at construction even when it has no rows.
type Table struct {
	Columns []string
	Rows    map[string][]float64
}

// NewTable creates an empty partial table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{
		Columns: columns,
		Rows:    make(map[string][]float64),
	}
}

// Set stores the values for user. The value count must match the columns.
func (t *Table) Set(user string, values ...float64) {
	if len(values) != len(t.Columns) {
		panic(fmt.Sprintf("features: %d values for %d columns", len(values), len(t.Columns)))
	}
	row := make([]float64, len(values))
	copy(row, values)
	t.Rows[user] = row
}

// Get returns the row for user.
func (t *Table) Get(user string) ([]float64, bool) {
	row, ok := t.Rows[user]
	return row, ok
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Record is one flat matrix row as served to callers.
type Record map[string]any

// Matrix is the merged feature matrix: one row per user, sorted by user id.
// Scores, Ranks and Anomalous are nil until the matrix has been scored.
type Matrix struct {
	Columns   []string    `json:"columns"`
	Users     []string    `json:"users"`
	Values    [][]float64 `json:"values"`
	Scores    []float64   `json:"scores,omitempty"`
	Ranks     []int       `json:"ranks,omitempty"`
	Anomalous []bool      `json:"anomalous,omitempty"`
}

// Merge outer-joins partial tables on user. Cells a table does not cover
// are zero, never missing. Columns are concatenated in argument order.
func Merge(tables ...*Table) *Matrix {
	var columns []string
	userSet := make(map[string]struct{})
	for _, t := range tables {
		columns = append(columns, t.Columns...)
		for u := range t.Rows {
			userSet[u] = struct{}{}
		}
	}

	users := make([]string, 0, len(userSet))
	for u := range userSet {
		users = append(users, u)
	}
	sort.Strings(users)

	values := make([][]float64, len(users))
	for i, u := range users {
		row := make([]float64, len(columns))
		offset := 0
		for _, t := range tables {
			if part, ok := t.Rows[u]; ok {
				copy(row[offset:], part)
			}
			offset += len(t.Columns)
		}
		values[i] = row
	}

	if columns == nil {
		columns = []string{}
	}
	return &Matrix{Columns: columns, Users: users, Values: values}
}

func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Users)
}

// Scored reports whether score, rank and anomaly columns are present.
func (m *Matrix) Scored() bool {
	return m != nil && m.Scores != nil && len(m.Scores) == len(m.Users) && len(m.Ranks) == len(m.Users)
}

// Index locates user in the matrix.
func (m *Matrix) Index(user string) (int, bool) {
	if m == nil {
		return 0, false
	}
	i := sort.SearchStrings(m.Users, user)
	if i < len(m.Users) && m.Users[i] == user {
		return i, true
	}
	return 0, false
}

// Column returns the position of a feature column.
func (m *Matrix) Column(name string) (int, bool) {
	for i, c := range m.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Value returns a single feature cell.
func (m *Matrix) Value(user, column string) (float64, bool) {
	i, ok := m.Index(user)
	if !ok {
		return 0, false
	}
	j, ok := m.Column(column)
	if !ok {
		return 0, false
	}
	return m.Values[i][j], true
}

// Vectors returns a numeric copy of the feature values with NaN and
// infinities coerced to zero.
func (m *Matrix) Vectors() [][]float64 {
	out := make([][]float64, len(m.Values))
	for i, row := range m.Values {
		v := make([]float64, len(row))
		for j, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				x = 0
			}
			v[j] = x
		}
		out[i] = v
	}
	return out
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	if m == nil {
		return nil
	}
	c := &Matrix{
		Columns: append([]string(nil), m.Columns...),
		Users:   append([]string(nil), m.Users...),
		Values:  m.Vectors(),
	}
	if m.Scores != nil {
		c.Scores = append([]float64(nil), m.Scores...)
	}
	if m.Ranks != nil {
		c.Ranks = append([]int(nil), m.Ranks...)
	}
	if m.Anomalous != nil {
		c.Anomalous = append([]bool(nil), m.Anomalous...)
	}
	return c
}

// WithScores returns a copy of the matrix with score columns appended.
func (m *Matrix) WithScores(scores []float64, ranks []int, anomalous []bool) (*Matrix, error) {
	n := m.Len()
	if len(scores) != n || len(ranks) != n || len(anomalous) != n {
		return nil, fmt.Errorf("features: score columns have %d/%d/%d rows, matrix has %d",
			len(scores), len(ranks), len(anomalous), n)
	}
	c := m.Clone()
	c.Scores = append([]float64(nil), scores...)
	c.Ranks = append([]int(nil), ranks...)
	c.Anomalous = append([]bool(nil), anomalous...)
	return c, nil
}

// Header lists the record keys in display order.
func (m *Matrix) Header() []string {
	h := append([]string{ColumnUser}, m.Columns...)
	if m.Scored() {
		h = append(h, ColumnScore, ColumnRank, ColumnAnomalous)
	}
	return h
}

// Record flattens row i.
func (m *Matrix) Record(i int) Record {
	r := make(Record, len(m.Columns)+4)
	r[ColumnUser] = m.Users[i]
	for j, c := range m.Columns {
		r[c] = m.Values[i][j]
	}
	if m.Scored() {
		r[ColumnScore] = m.Scores[i]
		r[ColumnRank] = m.Ranks[i]
		r[ColumnAnomalous] = m.Anomalous[i]
	}
	return r
}

// RankOrder returns row indices ordered by rank (most anomalous first).
// Unscored matrices return row order.
func (m *Matrix) RankOrder() []int {
	idx := make([]int, m.Len())
	for i := range idx {
		idx[i] = i
	}
	if !m.Scored() {
		return idx
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return m.Ranks[idx[a]] < m.Ranks[idx[b]]
	})
	return idx
}
