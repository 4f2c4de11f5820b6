// internal/engine/config.go
package engine

// Tunable thresholds. Defaults mirror the values the UI was calibrated with.
const (
	DefaultConfidenceFloor    = 0.2
	DefaultUnknownScore       = 0.1
	DefaultKeywordIncrement   = 0.35
	DefaultFlowBonus          = 0.2
	DefaultRepeatPenalty      = 0.1
	DefaultRepeatPenaltyAfter = 2
	DefaultStuckThreshold     = 3
	DefaultMaxInputRunes      = 4000
	DefaultMaxTopics          = 32
	DefaultDisclaimerBelow    = 0.6

	FallbackSuggestionCount = 4
)

type Config struct {
	ConfidenceFloor    float64
	UnknownScore       float64
	KeywordIncrement   float64
	FlowBonus          float64
	RepeatPenalty      float64
	RepeatPenaltyAfter int
	StuckThreshold     int
	MaxInputRunes      int
	MaxTopics          int
	DisclaimerBelow    float64
}

func DefaultConfig() Config {
	return Config{
		ConfidenceFloor:    DefaultConfidenceFloor,
		UnknownScore:       DefaultUnknownScore,
		KeywordIncrement:   DefaultKeywordIncrement,
		FlowBonus:          DefaultFlowBonus,
		RepeatPenalty:      DefaultRepeatPenalty,
		RepeatPenaltyAfter: DefaultRepeatPenaltyAfter,
		StuckThreshold:     DefaultStuckThreshold,
		MaxInputRunes:      DefaultMaxInputRunes,
		MaxTopics:          DefaultMaxTopics,
		DisclaimerBelow:    DefaultDisclaimerBelow,
	}
}

// withDefaults fills zero values so a partially populated Config from viper
// never disables a guard by accident.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConfidenceFloor <= 0 {
		c.ConfidenceFloor = d.ConfidenceFloor
	}
	if c.UnknownScore <= 0 || c.UnknownScore >= c.ConfidenceFloor {
		c.UnknownScore = c.ConfidenceFloor / 2
	}
	if c.KeywordIncrement <= 0 {
		c.KeywordIncrement = d.KeywordIncrement
	}
	if c.FlowBonus <= 0 {
		c.FlowBonus = d.FlowBonus
	}
	if c.RepeatPenalty < 0 {
		c.RepeatPenalty = d.RepeatPenalty
	}
	if c.RepeatPenaltyAfter <= 0 {
		c.RepeatPenaltyAfter = d.RepeatPenaltyAfter
	}
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = d.StuckThreshold
	}
	if c.MaxInputRunes <= 0 {
		c.MaxInputRunes = d.MaxInputRunes
	}
	if c.MaxTopics <= 0 {
		c.MaxTopics = d.MaxTopics
	}
	if c.DisclaimerBelow <= 0 {
		c.DisclaimerBelow = d.DisclaimerBelow
	}
	return c
}
