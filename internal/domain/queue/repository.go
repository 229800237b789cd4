package queue

import (
	"context"
	"time"
)

// Stats counts queue items per lifecycle state.
type Stats struct {
	Pending    int
	Assigned   int
	Processing int
	Completed  int
	Failed     int
	Total      int
}

// Repository defines the persistence operations for queue items.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)

	// ClaimMatchingForCategory atomically picks the best pending item for the
	// given category (exact category first, then uncategorized, then by
	// priority and age) and transitions it pending -> assigned for the
	// persona. The transition is the idempotency guard: a concurrent or
	// repeated pass cannot claim the same item twice. Returns
	// database.ErrItemNotFound when nothing matches.
	ClaimMatchingForCategory(ctx context.Context, category, personaID string) (*Item, error)

	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, postID string) error
	MarkFailed(ctx context.Context, id, errorMessage string) error

	Stats(ctx context.Context) (*Stats, error)

	// DeleteFailedBefore removes failed items older than the cutoff.
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ScheduleRepository defines the persistence operations for publishing
// attempt records.
type ScheduleRepository interface {
	Create(ctx context.Context, rec *ScheduleRecord) error
	MarkCompleted(ctx context.Context, id, postID, imageURL string) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
}
