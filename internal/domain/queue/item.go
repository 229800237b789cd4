package queue

import (
	"database/sql"
	"time"
)

// Status is the lifecycle state of a queue item. Items move monotonically
// pending -> assigned -> processing -> completed | failed; only an explicit
// operator reset may move a failed item back to pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Item is one unit of publishable content awaiting assignment to a persona.
// Items are created externally (bulk import or operator tooling) and consumed
// exactly once to a terminal state.
type Item struct {
	ID                string
	Prompt            string
	Category          sql.NullString // optional target category
	Subcategory       sql.NullString
	Priority          int // 1-10, higher first
	Status            Status
	AssignedPersonaID sql.NullString
	Source            sql.NullString // manual | import | api
	PostID            sql.NullString // set on completion
	ErrorMessage      sql.NullString
	CreatedAt         time.Time
	ProcessedAt       sql.NullTime
}
