// Package activity models the normalized monitoring logs (logon, device,
// email and file access) that feed the feature pipeline.
package activity

import (
	"fmt"
	"time"
)

// Source identifies one monitoring feed.
type Source string

const (
	SourceLogon  Source = "logon"
	SourceDevice Source = "device"
	SourceEmail  Source = "email"
	SourceFile   Source = "file"
)

// Sources lists every feed in load order.
var Sources = []Source{SourceLogon, SourceDevice, SourceEmail, SourceFile}

// FileName returns the CSV file name the source is read from.
func (s Source) FileName() string {
	return string(s) + ".csv"
}

func (s Source) String() string {
	return string(s)
}

// ParseSource validates a source name.
func ParseSource(name string) (Source, error) {
	for _, s := range Sources {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown activity source %q", name)
}

// Canonical column names after normalization.
const (
	ColumnUser      = "user"
	ColumnRecipient = "recipient"
	ColumnTimestamp = "timestamp"
	ColumnDate      = "date"
	ColumnSubject   = "subject"
)

// UnknownRecipient fills the recipient column when the email log has none.
const UnknownRecipient = "unknown"

// DateLayout is the calendar-date format used for daily aggregation.
const DateLayout = "2006-01-02"

// SentinelTimestamp is assigned to every row of a log that has no
// timestamp-like column at all.
var SentinelTimestamp = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Timestamp is a nullable instant. Unparseable cells stay invalid.
type Timestamp struct {
	Time  time.Time `json:"time"`
	Valid bool      `json:"valid"`
}

// String renders the timestamp for JSON consumers; invalid values render empty.
func (t Timestamp) String() string {
	if !t.Valid {
		return ""
	}
	if t.Time.Location() == time.UTC {
		return t.Time.Format("2006-01-02 15:04:05")
	}
	return t.Time.Format("2006-01-02 15:04:05-07:00")
}

// Record is one normalized log line.
type Record struct {
	User      string            `json:"user"`
	Timestamp Timestamp         `json:"timestamp"`
	Date      string            `json:"date"`
	Fields    map[string]string `json:"fields"`
}

// Hour returns the hour of day, or false when the timestamp is invalid.
func (r Record) Hour() (int, bool) {
	if !r.Timestamp.Valid {
		return 0, false
	}
	return r.Timestamp.Time.Hour(), true
}

// Recipient returns the canonical recipient field (email logs only).
func (r Record) Recipient() string {
	return r.Fields[ColumnRecipient]
}

// Subject returns the subject text and whether the field exists.
func (r Record) Subject() (string, bool) {
	s, ok := r.Fields[ColumnSubject]
	return s, ok
}

// Raw flattens the record into the shape returned to investigators: every
// original field plus the derived user, timestamp and date.
func (r Record) Raw() map[string]any {
	out := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[ColumnUser] = r.User
	out[ColumnTimestamp] = r.Timestamp.String()
	out[ColumnDate] = r.Date
	return out
}

// Table is the normalized content of one source file.
type Table struct {
	Source   Source   `json:"source"`
	Columns  []string `json:"columns"`
	HasActor bool     `json:"has_actor"`
	Records  []Record `json:"records"`
}

// NewTable returns an empty table for a source.
func NewTable(source Source) *Table {
	return &Table{
		Source:  source,
		Columns: []string{},
		Records: []Record{},
	}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

func (t *Table) Empty() bool {
	return t.Len() == 0
}

// HasColumn reports whether the post-normalization header contains name.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ForUser returns the records attributed to user. Tables without an actor
// column never match, and neither does a blank user.
func (t *Table) ForUser(user string) []Record {
	if t == nil || !t.HasActor || user == "" {
		return nil
	}
	var out []Record
	for _, r := range t.Records {
		if r.User == user {
			out = append(out, r)
		}
	}
	return out
}

// Tables indexes the four normalized logs by source.
type Tables map[Source]*Table

// Get returns the table for source, or an empty one when absent.
func (ts Tables) Get(source Source) *Table {
	if t, ok := ts[source]; ok && t != nil {
		return t
	}
	return NewTable(source)
}

// Loaded reports whether any table has been populated.
func (ts Tables) Loaded() bool {
	return len(ts) > 0
}
