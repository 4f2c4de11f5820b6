// internal/engine/fallback.go
package engine

import (
	"strings"
	"unicode/utf8"
)

const (
	FallbackEmpty    = "fallback.empty"
	FallbackQuestion = "fallback.question"
	FallbackTooLong  = "fallback.tooLong"
	FallbackUnclear  = "fallback.unclear"

	tooLongRunes = 500
)

var fallbackCandidates = map[Screen][]Suggestion{
	ScreenAdvisor: {
		{Key: SuggestNextSteps, Intent: IntentNextSteps},
		{Key: SuggestBuildPitch, Intent: IntentPitchHelp},
		{Key: SuggestRunCompass, Intent: IntentCompassAnalysis},
		{Key: SuggestCheckProfile, Intent: IntentProfileCheck},
		{Key: SuggestShowCapabilities, Intent: IntentHelpRequest},
	},
	ScreenProgram: {
		{Key: SuggestShowTactic, Intent: IntentShowTactic},
		{Key: SuggestShowExercise, Intent: IntentShowExercise},
		{Key: SuggestLogToday, Intent: IntentLogActivity},
		{Key: SuggestShowCalendar, Intent: IntentShowCalendar},
		{Key: SuggestShareContext, Intent: IntentContext},
		{Key: SuggestShowCapabilities, Intent: IntentHelpRequest},
	},
}

// Fallback is the structured reply for input no rule understood.
type Fallback struct {
	MessageKey     string   `json:"messageKey"`
	SuggestionKeys []string `json:"suggestionKeys"`
}

// GenerateSmartFallback picks a message variant from the shape of the input
// and always offers FallbackSuggestionCount next actions, undiscussed first.
func (e *Engine) GenerateSmartFallback(input string, cc ClassifyContext) Fallback {
	trimmed := strings.TrimSpace(input)

	key := FallbackUnclear
	switch {
	case trimmed == "":
		key = FallbackEmpty
	case utf8.RuneCountInString(trimmed) > tooLongRunes:
		key = FallbackTooLong
	case strings.Contains(trimmed, "?"):
		key = FallbackQuestion
	}

	candidates, ok := fallbackCandidates[cc.Screen]
	if !ok {
		candidates = fallbackCandidates[ScreenAdvisor]
	}

	fresh := make([]string, 0, len(candidates))
	seen := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if cc.Conversation.HasTopic(string(c.Intent)) {
			seen = append(seen, c.Key)
			continue
		}
		fresh = append(fresh, c.Key)
	}
	keys := append(fresh, seen...)
	if len(keys) > FallbackSuggestionCount {
		keys = keys[:FallbackSuggestionCount]
	}
	return Fallback{MessageKey: key, SuggestionKeys: keys}
}
