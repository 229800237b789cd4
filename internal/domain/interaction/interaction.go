package interaction

import (
	"database/sql"
	"time"
)

// Type is the kind of interaction a persona performs.
type Type string

const (
	TypeComment Type = "comment"
	TypeFollow  Type = "follow"
	TypeLike    Type = "like"
)

// Reason explains an arbiter decision.
type Reason string

const (
	ReasonOK               Reason = "ok"
	ReasonDepthExceeded    Reason = "depth_exceeded"
	ReasonDailyCapExceeded Reason = "daily_cap_exceeded"
	ReasonCooldownActive   Reason = "cooldown_active"
)

// CheckResult is the arbiter's structured verdict. A rejection is a normal
// outcome, not an error; errors are reserved for datastore failure.
type CheckResult struct {
	Allowed bool
	Reason  Reason
}

// LogEntry is the immutable record of one executed interaction. Entries are
// append-only; the core logic only ever reads them back for arbitration.
type LogEntry struct {
	ID               string
	PersonaID        string
	Type             Type
	TargetUserID     sql.NullString
	TargetPostID     sql.NullString
	TargetCommentID  sql.NullString
	GeneratedContent sql.NullString
	ThreadDepth      int
	CreatedAt        time.Time
}

// Limits are the static anti-loop constants. They are tuning data, not
// business data, and are never mutated at runtime.
type Limits struct {
	DailyMax       int           // total interactions per persona per day
	V2VDailyMax    int           // virtual-to-virtual interactions per persona per day
	MaxThreadDepth int           // comment chain depth at which replies stop
	Cooldown       time.Duration // minimum gap before re-targeting the same user
}

// DefaultLimits are the production constants. The cooldown boundary is
// inclusive-allow: an interaction exactly Cooldown after the previous one
// with the same target is permitted.
var DefaultLimits = Limits{
	DailyMax:       30,
	V2VDailyMax:    5,
	MaxThreadDepth: 3,
	Cooldown:       30 * time.Minute,
}
