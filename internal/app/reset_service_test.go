package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual_persona_bot/internal/domain/persona"
	"virtual_persona_bot/internal/domain/queue"
)

type recordingNotifier struct {
	chatID int64
	text   string
	sent   int
}

func (n *recordingNotifier) SendMessage(recipientChatID int64, text string) error {
	n.chatID = recipientChatID
	n.text = text
	n.sent++
	return nil
}

func TestRunDailyResetAllocatesAndPrunes(t *testing.T) {
	p := activePersona("p1", persona.ActivityModerate, 0)
	personaRepo := newFakePersonaRepo(p)
	interactionRepo := newFakeInteractionRepo()
	queueRepo := newFakeQueueRepo()

	now := time.Date(2026, 8, 29, 0, 0, 5, 0, time.UTC)

	// One stale cooldown and one fresh.
	interactionRepo.cooldowns["p1|human-1"] = now.Add(-36 * time.Hour)
	interactionRepo.cooldowns["p1|human-2"] = now.Add(-time.Hour)

	// One old failed item and one recent.
	old := pendingItem("q-old", "stale", "")
	old.Status = queue.StatusFailed
	old.CreatedAt = now.Add(-8 * 24 * time.Hour)
	recent := pendingItem("q-new", "fresh failure", "")
	recent.Status = queue.StatusFailed
	recent.CreatedAt = now.Add(-time.Hour)
	require.NoError(t, queueRepo.Create(context.Background(), old))
	require.NoError(t, queueRepo.Create(context.Background(), recent))

	notifier := &recordingNotifier{}

	tokens := NewTokenService(personaRepo, testLogger())
	tokens.now = func() time.Time { return now }
	svc := NewResetService(tokens, interactionRepo, queueRepo, notifier, 42, testLogger())
	svc.now = tokens.now

	summary, err := svc.RunDailyReset(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Allocation.TotalAllocated)
	assert.Equal(t, int64(1), summary.CooldownsPruned)
	assert.Equal(t, int64(1), summary.FailedPruned)

	_, hasStale := interactionRepo.cooldowns["p1|human-1"]
	assert.False(t, hasStale)
	_, hasFresh := interactionRepo.cooldowns["p1|human-2"]
	assert.True(t, hasFresh)

	_, err = queueRepo.GetByID(context.Background(), "q-old")
	assert.Error(t, err)
	_, err = queueRepo.GetByID(context.Background(), "q-new")
	assert.NoError(t, err)

	assert.Equal(t, 1, notifier.sent)
	assert.Equal(t, int64(42), notifier.chatID)
	assert.Contains(t, notifier.text, "Tokens allocated: 3")
}

func TestRunDailyResetWithoutNotifier(t *testing.T) {
	p := activePersona("p1", persona.ActivityLow, 0)
	tokens := NewTokenService(newFakePersonaRepo(p), testLogger())
	svc := NewResetService(tokens, newFakeInteractionRepo(), newFakeQueueRepo(), nil, 0, testLogger())

	summary, err := svc.RunDailyReset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Allocation.TotalAllocated)
}
