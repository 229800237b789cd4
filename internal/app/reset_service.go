package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"virtual_persona_bot/internal/domain/interaction"
	"virtual_persona_bot/internal/domain/notify"
	"virtual_persona_bot/internal/domain/queue"
)

const (
	cooldownRetention   = 24 * time.Hour
	failedItemRetention = 7 * 24 * time.Hour
)

// ResetSummary is the daily reset outcome, allocation plus housekeeping.
type ResetSummary struct {
	Allocation      *AllocationSummary `json:"allocation"`
	CooldownsPruned int64              `json:"cooldowns_pruned"`
	FailedPruned    int64              `json:"failed_items_pruned"`
}

// ResetService runs the once-a-day maintenance pass: token allocation for
// the whole fleet, then retention sweeps over cooldown rows and failed queue
// items. Housekeeping failures are logged but never fail the allocation.
type ResetService struct {
	tokens          *TokenService
	interactionRepo interaction.Repository
	queueRepo       queue.Repository
	notifier        notify.Client
	adminChatID     int64
	logger          *logrus.Entry

	now func() time.Time
}

func NewResetService(
	tokens *TokenService,
	ir interaction.Repository,
	qr queue.Repository,
	notifier notify.Client,
	adminChatID int64,
	logger *logrus.Entry,
) *ResetService {
	return &ResetService{
		tokens:          tokens,
		interactionRepo: ir,
		queueRepo:       qr,
		notifier:        notifier,
		adminChatID:     adminChatID,
		logger:          logger,
		now:             time.Now,
	}
}

// RunDailyReset performs the allocation and housekeeping pass.
func (s *ResetService) RunDailyReset(ctx context.Context) (*ResetSummary, error) {
	allocation, err := s.tokens.AllocateDailyTokensForAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("daily token allocation failed: %w", err)
	}
	summary := &ResetSummary{Allocation: allocation}

	now := s.now()

	pruned, err := s.interactionRepo.DeleteCooldownsBefore(ctx, now.Add(-cooldownRetention))
	if err != nil {
		s.logger.WithError(err).Error("Failed to prune expired cooldowns")
	} else {
		summary.CooldownsPruned = pruned
	}

	removed, err := s.queueRepo.DeleteFailedBefore(ctx, now.Add(-failedItemRetention))
	if err != nil {
		s.logger.WithError(err).Error("Failed to prune old failed queue items")
	} else {
		summary.FailedPruned = removed
	}

	s.notifyAdmin(summary)
	return summary, nil
}

func (s *ResetService) notifyAdmin(summary *ResetSummary) {
	if s.notifier == nil || s.adminChatID == 0 {
		return
	}
	text := fmt.Sprintf(
		"Daily persona reset\nActive: %d\nTokens allocated: %d\nSkipped: %d\nFailed: %d\nCooldowns pruned: %d\nFailed items pruned: %d",
		summary.Allocation.TotalActive,
		summary.Allocation.TotalAllocated,
		summary.Allocation.Skipped,
		summary.Allocation.Failed,
		summary.CooldownsPruned,
		summary.FailedPruned,
	)
	if err := s.notifier.SendMessage(s.adminChatID, text); err != nil {
		s.logger.WithError(err).Warn("Failed to send admin reset notification")
	}
}
