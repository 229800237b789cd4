package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"virtual_persona_bot/internal/domain/interaction"
	"virtual_persona_bot/internal/domain/persona"
	"virtual_persona_bot/internal/infra/monitoring"
)

// ArbiterService is the anti-loop gatekeeper: it decides whether a persona
// may interact with a target right now. A rejection is a normal outcome
// carried in the result; only datastore failure surfaces as an error.
type ArbiterService struct {
	interactionRepo interaction.Repository
	personaRepo     persona.Repository
	limits          interaction.Limits
	logger          *logrus.Entry

	now func() time.Time
}

func NewArbiterService(ir interaction.Repository, pr persona.Repository, limits interaction.Limits, logger *logrus.Entry) *ArbiterService {
	return &ArbiterService{
		interactionRepo: ir,
		personaRepo:     pr,
		limits:          limits,
		logger:          logger,
		now:             time.Now,
	}
}

// Check runs the three gates in order: thread depth, daily caps, cooldown.
// threadDepth is the depth the new interaction would have (0 for a top-level
// comment, parent depth + 1 for a reply).
func (s *ArbiterService) Check(ctx context.Context, actor *persona.Persona, targetUserID string, threadDepth int) (interaction.CheckResult, error) {
	// Gate 1: thread depth.
	if threadDepth >= s.limits.MaxThreadDepth {
		return s.reject(interaction.ReasonDepthExceeded), nil
	}

	// Gate 2: daily caps. The total cap applies to every interaction; the
	// tighter virtual-to-virtual cap applies only when the target is itself
	// a persona. Human targets are exempt from the v2v cap.
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	total, err := s.interactionRepo.CountForPersonaSince(ctx, actor.ID, startOfDay)
	if err != nil {
		return interaction.CheckResult{}, fmt.Errorf("failed to count today's interactions for persona %s: %w", actor.ID, err)
	}
	if total >= s.limits.DailyMax {
		return s.reject(interaction.ReasonDailyCapExceeded), nil
	}

	targetVirtual, err := s.personaRepo.IsVirtualUser(ctx, targetUserID)
	if err != nil {
		return interaction.CheckResult{}, fmt.Errorf("failed to resolve target user %s: %w", targetUserID, err)
	}
	if targetVirtual {
		v2v, err := s.interactionRepo.CountVirtualTargetsSince(ctx, actor.ID, startOfDay)
		if err != nil {
			return interaction.CheckResult{}, fmt.Errorf("failed to count v2v interactions for persona %s: %w", actor.ID, err)
		}
		if v2v >= s.limits.V2VDailyMax {
			return s.reject(interaction.ReasonDailyCapExceeded), nil
		}
	}

	// Gate 3: cooldown against this specific target. The boundary is
	// inclusive-allow: exactly Cooldown elapsed passes the gate.
	last, found, err := s.interactionRepo.LastInteractionAt(ctx, actor.ID, targetUserID)
	if err != nil {
		return interaction.CheckResult{}, fmt.Errorf("failed to look up cooldown for persona %s: %w", actor.ID, err)
	}
	if found && now.Sub(last) < s.limits.Cooldown {
		return s.reject(interaction.ReasonCooldownActive), nil
	}

	return interaction.CheckResult{Allowed: true, Reason: interaction.ReasonOK}, nil
}

func (s *ArbiterService) reject(reason interaction.Reason) interaction.CheckResult {
	monitoring.ArbiterRejections.WithLabelValues(string(reason)).Inc()
	return interaction.CheckResult{Allowed: false, Reason: reason}
}

// RecordDetails carries the optional context of a recorded interaction.
type RecordDetails struct {
	TargetPostID    string
	TargetCommentID string
	Content         string
	ThreadDepth     int
}

// Record appends the interaction log entry, refreshes the cooldown row and
// bumps the persona's activity counters. Executors call it immediately after
// the interaction side effect so a persona cannot re-attempt the same target
// before its own action is visible.
func (s *ArbiterService) Record(ctx context.Context, actor *persona.Persona, targetUserID string, typ interaction.Type, d RecordDetails) error {
	now := s.now()

	entry := &interaction.LogEntry{
		ID:               uuid.NewString(),
		PersonaID:        actor.ID,
		Type:             typ,
		TargetUserID:     nullString(targetUserID),
		TargetPostID:     nullString(d.TargetPostID),
		TargetCommentID:  nullString(d.TargetCommentID),
		GeneratedContent: nullString(d.Content),
		ThreadDepth:      d.ThreadDepth,
		CreatedAt:        now,
	}
	if err := s.interactionRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append interaction log: %w", err)
	}

	if err := s.interactionRepo.TouchCooldown(ctx, actor.ID, targetUserID, now); err != nil {
		return fmt.Errorf("failed to update cooldown: %w", err)
	}

	if err := s.personaRepo.IncrementInteractionCounters(ctx, actor.ID, string(typ), now); err != nil {
		// The interaction itself is recorded; stale counters are tolerable.
		s.logger.WithError(err).WithField("persona_id", actor.ID).Warn("Failed to update persona interaction counters")
	}

	return nil
}
