package ingest

// DefaultMaxRows caps how many data rows are read from each source file.
const DefaultMaxRows = 50000

// Column aliases, in priority order.
var (
	TimestampColumns = []string{"timestamp", "date", "time", "sent_time"}
	ActorAliases     = []string{"employee", "user_id", "actor"}
	RecipientAliases = []string{"to", "cc", "bcc"}
)

// timestampLayouts are tried in order for every timestamp cell.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02-Jan-2006 15:04:05",
	"Mon Jan 2 15:04:05 2006",
}
