package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInActiveHours(t *testing.T) {
	day := &Persona{ActiveHoursStart: 9, ActiveHoursEnd: 17}
	assert.True(t, day.InActiveHours(9), "window start is inclusive")
	assert.True(t, day.InActiveHours(16))
	assert.False(t, day.InActiveHours(17), "window end is exclusive")
	assert.False(t, day.InActiveHours(8))

	night := &Persona{ActiveHoursStart: 22, ActiveHoursEnd: 6}
	assert.True(t, night.InActiveHours(23), "wrapped window covers late evening")
	assert.True(t, night.InActiveHours(2), "wrapped window covers early morning")
	assert.True(t, night.InActiveHours(22))
	assert.False(t, night.InActiveHours(6), "wrapped window end is exclusive")
	assert.False(t, night.InActiveHours(12))
}

func TestDailyTokensFor(t *testing.T) {
	assert.Equal(t, 1, DailyTokensFor(ActivityLow))
	assert.Equal(t, 3, DailyTokensFor(ActivityModerate))
	assert.Equal(t, 6, DailyTokensFor(ActivityHigh))
	assert.Equal(t, 10, DailyTokensFor(ActivityVeryHigh))
}

func TestConfigForUnknownFallsBackToLow(t *testing.T) {
	cfg := ConfigFor(ActivityLevel("frantic"))
	assert.Equal(t, tierConfigs[ActivityLow], cfg)
}

func TestHourWeight(t *testing.T) {
	assert.Equal(t, 0.70, HourWeight(20), "evening peak")
	assert.Equal(t, 0.01, HourWeight(3), "small hours near zero")
	assert.Equal(t, 0.1, HourWeight(-1), "out of range falls back")
	assert.Equal(t, 0.1, HourWeight(24), "out of range falls back")
}
