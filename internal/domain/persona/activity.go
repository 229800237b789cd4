package persona

// TierConfig holds the static tuning constants for one activity tier.
// These are versioned lookup data, never mutated at runtime.
type TierConfig struct {
	DailyTokens       int     // posts the persona may publish per day
	ReplyProbability  float64 // base chance to interact per interaction pass
	FollowProbability float64 // share of interactions that become follows
}

// tierConfigs maps each activity tier to its tuning constants. Token counts
// are deterministic so a daily reset always lands on the same balance.
var tierConfigs = map[ActivityLevel]TierConfig{
	ActivityLow:      {DailyTokens: 1, ReplyProbability: 0.3, FollowProbability: 0.1},
	ActivityModerate: {DailyTokens: 3, ReplyProbability: 0.5, FollowProbability: 0.2},
	ActivityHigh:     {DailyTokens: 6, ReplyProbability: 0.7, FollowProbability: 0.3},
	ActivityVeryHigh: {DailyTokens: 10, ReplyProbability: 0.9, FollowProbability: 0.5},
}

// ConfigFor returns the tuning constants for a tier. Unknown tiers fall back
// to the low tier so a malformed row can never over-schedule.
func ConfigFor(level ActivityLevel) TierConfig {
	if cfg, ok := tierConfigs[level]; ok {
		return cfg
	}
	return tierConfigs[ActivityLow]
}

// DailyTokensFor returns the daily token allocation for a tier.
func DailyTokensFor(level ActivityLevel) int {
	return ConfigFor(level).DailyTokens
}

// hourWeights models a human activity curve over the day: near-zero in the
// small hours, peaking in the evening. Index is the local hour 0-23.
var hourWeights = [24]float64{
	0.05, 0.02, 0.01, 0.01, 0.01, 0.02,
	0.05, 0.10, 0.15, 0.20, 0.25, 0.30,
	0.35, 0.30, 0.25, 0.30, 0.35, 0.40,
	0.50, 0.60, 0.70, 0.60, 0.40, 0.20,
}

// HourWeight returns the relative posting likelihood for a local hour.
func HourWeight(hour int) float64 {
	if hour < 0 || hour > 23 {
		return 0.1
	}
	return hourWeights[hour]
}
