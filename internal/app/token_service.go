package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"virtual_persona_bot/internal/domain/persona"
	"virtual_persona_bot/internal/infra/monitoring"
)

// AllocationResult reports one persona's daily allocation.
type AllocationResult struct {
	PersonaID     string                `json:"persona_id"`
	Username      string                `json:"username"`
	ActivityLevel persona.ActivityLevel `json:"activity_level"`
	Tokens        int                   `json:"tokens"`
	// Applied is false when the persona was already allocated today (the
	// idempotency guard fired) or the update failed.
	Applied bool `json:"applied"`
}

// TierAllocationSummary aggregates one tier's allocations.
type TierAllocationSummary struct {
	Level  persona.ActivityLevel `json:"level"`
	Count  int                   `json:"count"`
	Tokens int                   `json:"tokens"`
}

// AllocationSummary is the daily reset result returned to the trigger.
type AllocationSummary struct {
	TotalActive    int                     `json:"total_active"`
	TotalAllocated int                     `json:"total_allocated"`
	Skipped        int                     `json:"skipped"`
	Failed         int                     `json:"failed"`
	ByLevel        []TierAllocationSummary `json:"by_level"`
	Allocations    []AllocationResult      `json:"allocations,omitempty"`
}

// TokenService converts activity tiers into daily token budgets and decides
// whether "now" is a plausible moment for a persona to post.
type TokenService struct {
	personaRepo persona.Repository
	logger      *logrus.Entry

	now       func() time.Time
	randFloat func() float64
}

func NewTokenService(pr persona.Repository, logger *logrus.Entry) *TokenService {
	return &TokenService{
		personaRepo: pr,
		logger:      logger,
		now:         time.Now,
		randFloat:   rand.Float64,
	}
}

// AllocateDailyTokensForAll overwrites every active persona's token balance
// with its tier allocation. Calling it twice within the same day never
// doubles a budget: the repository guards on the allocation date. A failure
// for one persona is logged and does not abort the others.
func (s *TokenService) AllocateDailyTokensForAll(ctx context.Context) (*AllocationSummary, error) {
	personas, err := s.personaRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active personas: %w", err)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	summary := &AllocationSummary{TotalActive: len(personas)}
	byLevel := make(map[persona.ActivityLevel]*TierAllocationSummary)

	for _, p := range personas {
		tokens := persona.DailyTokensFor(p.ActivityLevel)

		applied, err := s.personaRepo.AllocateTokens(ctx, p.ID, tokens, today)
		if err != nil {
			summary.Failed++
			s.logger.WithError(err).WithField("persona_id", p.ID).Error("Token allocation failed, continuing with remaining personas")
			continue
		}
		if !applied {
			summary.Skipped++
			s.logger.WithField("persona_id", p.ID).Debug("Persona already allocated today, skipping")
			continue
		}

		summary.TotalAllocated += tokens
		monitoring.TokensAllocated.Add(float64(tokens))
		summary.Allocations = append(summary.Allocations, AllocationResult{
			PersonaID:     p.ID,
			Username:      p.Username,
			ActivityLevel: p.ActivityLevel,
			Tokens:        tokens,
			Applied:       true,
		})

		tier, ok := byLevel[p.ActivityLevel]
		if !ok {
			tier = &TierAllocationSummary{Level: p.ActivityLevel}
			byLevel[p.ActivityLevel] = tier
		}
		tier.Count++
		tier.Tokens += tokens
	}

	for _, level := range persona.AllActivityLevels {
		if tier, ok := byLevel[level]; ok {
			summary.ByLevel = append(summary.ByLevel, *tier)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"active":    summary.TotalActive,
		"allocated": summary.TotalAllocated,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("Daily token allocation completed")

	return summary, nil
}

// PersonasReadyToPost returns the personas eligible to publish right now:
// active, positive token balance, inside their activity window, and passing
// a weighted draw against the hour-of-day curve. The check is side-effect
// free; a token is consumed only on a successful publish.
func (s *TokenService) PersonasReadyToPost(ctx context.Context) ([]*persona.Persona, error) {
	candidates, err := s.personaRepo.ListActiveWithTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas with tokens: %w", err)
	}

	hour := s.now().Hour()
	weight := persona.HourWeight(hour)

	ready := make([]*persona.Persona, 0, len(candidates))
	for _, p := range candidates {
		if !p.InActiveHours(hour) {
			continue
		}
		if s.randFloat() >= weight {
			continue
		}
		ready = append(ready, p)
	}
	return ready, nil
}

// ConsumeToken atomically spends one posting token. It fails with the
// repository's insufficient-tokens error when the balance is already zero.
func (s *TokenService) ConsumeToken(ctx context.Context, personaID string) error {
	if err := s.personaRepo.ConsumeToken(ctx, personaID); err != nil {
		return err
	}
	monitoring.TokensConsumed.Inc()
	return nil
}

// TokenStats returns the aggregate token view for the statistics surface.
func (s *TokenService) TokenStats(ctx context.Context) (*persona.TokenStats, error) {
	return s.personaRepo.TokenStats(ctx)
}
