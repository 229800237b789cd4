package persona

import (
	"database/sql"
	"time"
)

// ActivityLevel classifies how often a persona acts. It drives the daily
// token allocation and the interaction sampling probability.
type ActivityLevel string

const (
	ActivityLow      ActivityLevel = "low"
	ActivityModerate ActivityLevel = "moderate"
	ActivityHigh     ActivityLevel = "high"
	ActivityVeryHigh ActivityLevel = "very_high"
)

// AllActivityLevels lists the tiers in ascending order of activity.
var AllActivityLevels = []ActivityLevel{
	ActivityLow,
	ActivityModerate,
	ActivityHigh,
	ActivityVeryHigh,
}

// Persona represents one simulated account. Identity and personality are
// produced by an out-of-scope generation process; this subsystem mutates only
// the scheduling fields (token balance, allocation date, activity counters).
type Persona struct {
	ID               string
	UserID           string // community user the persona posts as
	DisplayName      string
	Username         string
	Category         string // topical domain, e.g. "photography"
	ActivityLevel    ActivityLevel
	ActiveHoursStart int // local hour, inclusive
	ActiveHoursEnd   int // local hour, exclusive; may be < start (wraps midnight)
	TokensRemaining  int
	LastAllocatedOn  sql.NullTime // date of the last daily allocation
	IsActive         bool
	LastActiveAt     sql.NullTime
	TotalPostsMade   int
	TotalComments    int
	TotalFollows     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// InActiveHours reports whether the given local hour falls inside the
// persona's configured activity window. The window end is exclusive and the
// range may wrap past midnight (e.g. 22:00-06:00).
func (p *Persona) InActiveHours(hour int) bool {
	start, end := p.ActiveHoursStart, p.ActiveHoursEnd
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
