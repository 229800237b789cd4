package persona

import (
	"context"
	"time"
)

// TierTokenStats aggregates the personas of one activity tier.
type TierTokenStats struct {
	Count  int
	Tokens int
}

// TokenStats is the aggregate view consumed by the statistics surface.
type TokenStats struct {
	TotalActive int
	TotalTokens int
	ByLevel     map[ActivityLevel]TierTokenStats
}

// Repository defines the persistence operations for Persona entities.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Persona, error)
	ListActive(ctx context.Context) ([]*Persona, error)
	// ListActiveWithTokens returns active personas whose token balance is
	// positive. Eligibility filtering beyond that is application logic.
	ListActiveWithTokens(ctx context.Context) ([]*Persona, error)

	// AllocateTokens overwrites the persona's token balance with the given
	// count, guarded by the allocation date: if the persona was already
	// allocated on 'day' the call is a no-op and returns false.
	AllocateTokens(ctx context.Context, id string, tokens int, day time.Time) (bool, error)

	// ConsumeToken atomically decrements the balance by one. It returns
	// database.ErrInsufficientTokens when the balance is already zero; the
	// balance can never go negative, even under concurrent calls.
	ConsumeToken(ctx context.Context, id string) error

	// IncrementInteractionCounters bumps the per-type activity counter and
	// last_active_at after a recorded interaction.
	IncrementInteractionCounters(ctx context.Context, id string, interactionType string, at time.Time) error

	// IsVirtualUser reports whether a community user id belongs to a persona.
	IsVirtualUser(ctx context.Context, userID string) (bool, error)

	TokenStats(ctx context.Context) (*TokenStats, error)
}
