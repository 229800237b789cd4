package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual_persona_bot/internal/domain/persona"
	idb "virtual_persona_bot/internal/infra/database"
)

func activePersona(id string, level persona.ActivityLevel, tokens int) *persona.Persona {
	return &persona.Persona{
		ID:               id,
		UserID:           "user-" + id,
		Username:         "u_" + id,
		Category:         "photography",
		ActivityLevel:    level,
		ActiveHoursStart: 0,
		ActiveHoursEnd:   24,
		TokensRemaining:  tokens,
		IsActive:         true,
	}
}

func TestAllocateDailyTokensOverwritesBalance(t *testing.T) {
	// Leftover tokens from yesterday are replaced, not stacked.
	p := activePersona("p1", persona.ActivityModerate, 2)
	repo := newFakePersonaRepo(p)

	svc := NewTokenService(repo, testLogger())
	summary, err := svc.AllocateDailyTokensForAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalActive)
	assert.Equal(t, 3, summary.TotalAllocated)
	assert.Equal(t, 3, p.TokensRemaining)
	require.Len(t, summary.ByLevel, 1)
	assert.Equal(t, persona.ActivityModerate, summary.ByLevel[0].Level)
}

func TestAllocateDailyTokensIsIdempotentPerDay(t *testing.T) {
	p := activePersona("p1", persona.ActivityHigh, 0)
	repo := newFakePersonaRepo(p)
	svc := NewTokenService(repo, testLogger())

	_, err := svc.AllocateDailyTokensForAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, p.TokensRemaining)

	// A second run on the same day must not touch the balance.
	p.TokensRemaining = 4
	summary, err := svc.AllocateDailyTokensForAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalAllocated)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 4, p.TokensRemaining)
}

func TestAllocateDailyTokensNextDayReallocates(t *testing.T) {
	p := activePersona("p1", persona.ActivityLow, 0)
	p.LastAllocatedOn = sql.NullTime{Time: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), Valid: true}
	repo := newFakePersonaRepo(p)

	svc := NewTokenService(repo, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC) }

	summary, err := svc.AllocateDailyTokensForAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalAllocated)
	assert.Equal(t, 1, p.TokensRemaining)
}

func TestAllocateDailyTokensIsolatesFailures(t *testing.T) {
	p1 := activePersona("p1", persona.ActivityLow, 0)
	repo := newFakePersonaRepo(p1)
	repo.allocateErr = errBoom

	svc := NewTokenService(repo, testLogger())
	summary, err := svc.AllocateDailyTokensForAll(context.Background())
	require.NoError(t, err, "per-persona failure must not abort the pass")
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.TotalAllocated)
}

func TestConsumeTokenAtZeroBalance(t *testing.T) {
	p := activePersona("p1", persona.ActivityLow, 0)
	repo := newFakePersonaRepo(p)

	svc := NewTokenService(repo, testLogger())
	err := svc.ConsumeToken(context.Background(), p.ID)
	assert.ErrorIs(t, err, idb.ErrInsufficientTokens)
	assert.Equal(t, 0, p.TokensRemaining, "balance never goes negative")
}

func TestPersonasReadyToPostGating(t *testing.T) {
	inWindow := activePersona("p1", persona.ActivityHigh, 3)
	inWindow.ActiveHoursStart, inWindow.ActiveHoursEnd = 8, 22

	outOfWindow := activePersona("p2", persona.ActivityHigh, 3)
	outOfWindow.ActiveHoursStart, outOfWindow.ActiveHoursEnd = 0, 6

	noTokens := activePersona("p3", persona.ActivityHigh, 0)

	repo := newFakePersonaRepo(inWindow, outOfWindow, noTokens)
	svc := NewTokenService(repo, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 8, 29, 20, 0, 0, 0, time.UTC) } // hour weight 0.70
	svc.randFloat = func() float64 { return 0.0 }                                       // always pass the draw

	ready, err := svc.PersonasReadyToPost(context.Background())
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "p1", ready[0].ID)
}

func TestPersonasReadyToPostRespectsHourWeight(t *testing.T) {
	p := activePersona("p1", persona.ActivityHigh, 3)
	repo := newFakePersonaRepo(p)

	svc := NewTokenService(repo, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 8, 29, 20, 0, 0, 0, time.UTC) }
	svc.randFloat = func() float64 { return 0.95 } // above the 0.70 evening weight

	ready, err := svc.PersonasReadyToPost(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ready)
}
