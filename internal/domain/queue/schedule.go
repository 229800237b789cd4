package queue

import (
	"database/sql"
	"time"
)

// ScheduleStatus mirrors one publishing attempt's lifecycle.
type ScheduleStatus string

const (
	ScheduleProcessing ScheduleStatus = "processing"
	ScheduleCompleted  ScheduleStatus = "completed"
	ScheduleFailed     ScheduleStatus = "failed"
)

// ScheduleRecord is the audit row for one publishing attempt, correlating a
// queue item, a persona and the resulting community post. A row stuck in
// processing past a timeout is an abandoned attempt, recoverable by an
// external reconciliation sweep; it must never cause a double publish.
type ScheduleRecord struct {
	ID                string
	PersonaID         string
	PromptQueueID     string
	GeneratedImageURL sql.NullString
	PostID            sql.NullString
	Status            ScheduleStatus
	LastError         sql.NullString
	CreatedAt         time.Time
	CompletedAt       sql.NullTime
}
