package aggregation

// After-hours window: an hour h is after hours when h < AfterHoursEnd or
// h >= AfterHoursStart.
const (
	AfterHoursEnd   = 6
	AfterHoursStart = 20
)

// SensitiveKeywords are matched case-insensitively against email subjects.
var SensitiveKeywords = []string{"confidential", "secret", "password"}

// NeutralSentiment is the deterministic sentiment value assigned to every
// email until a real text model is wired in.
const NeutralSentiment = 0.0
