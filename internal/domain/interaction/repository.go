package interaction

import (
	"context"
	"time"
)

// Repository defines the persistence operations for interaction history and
// the cooldown lookup table.
type Repository interface {
	// Append inserts a log entry. Entries are never updated or deleted by
	// the core logic.
	Append(ctx context.Context, entry *LogEntry) error

	// CountForPersonaSince counts the persona's interactions since the
	// given instant (normally midnight local time).
	CountForPersonaSince(ctx context.Context, personaID string, since time.Time) (int, error)

	// CountVirtualTargetsSince counts the persona's interactions whose
	// target user is itself a virtual persona, since the given instant.
	CountVirtualTargetsSince(ctx context.Context, personaID string, since time.Time) (int, error)

	// LastInteractionAt returns the time the persona last interacted with
	// the specific target, from the cooldown table. The second return is
	// false when no prior interaction exists.
	LastInteractionAt(ctx context.Context, personaID, targetUserID string) (time.Time, bool, error)

	// TouchCooldown upserts the (persona, target) cooldown row.
	TouchCooldown(ctx context.Context, personaID, targetUserID string, at time.Time) error

	// DeleteCooldownsBefore prunes cooldown rows older than the cutoff.
	DeleteCooldownsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
