// internal/engine/proactive.go
package engine

import "advisor-engine/internal/models"

const (
	SuggestCompleteProfile  = "suggestion.completeProfile"
	SuggestRunCompass       = "suggestion.runCompass"
	SuggestLogToday         = "suggestion.logToday"
	SuggestBuildPitch       = "suggestion.buildPitch"
	SuggestNextSteps        = "suggestion.nextSteps"
	SuggestCheckProfile     = "suggestion.checkProfile"
	SuggestShowTactic       = "suggestion.showTactic"
	SuggestShowExercise     = "suggestion.showExercise"
	SuggestShowCalendar     = "suggestion.showCalendar"
	SuggestShareContext     = "suggestion.shareContext"
	SuggestShowCapabilities = "suggestion.showCapabilities"
	SuggestTryDifferent     = "suggestion.tryDifferent"
	SuggestTalkToHuman      = "suggestion.talkToHuman"
)

// Suggestion is a semantic key the caller resolves to display text.
type Suggestion struct {
	Key    string   `json:"key"`
	Intent IntentID `json:"intent"`
}

// GetProactiveSuggestions recommends actions the user has not taken yet,
// most important first. The caller usually surfaces only the head.
func GetProactiveSuggestions(conv models.ConversationContext, progress models.ProgressData) []Suggestion {
	var out []Suggestion

	if !progress.ProfileComplete && !conv.HasTopic(string(IntentDataCompletion)) && !conv.HasTopic(string(IntentProfileCheck)) {
		out = append(out, Suggestion{Key: SuggestCompleteProfile, Intent: IntentDataCompletion})
	}
	if !progress.CompassDone && !conv.HasTopic(string(IntentCompassAnalysis)) {
		out = append(out, Suggestion{Key: SuggestRunCompass, Intent: IntentCompassAnalysis})
	}
	if progress.CurrentDay > 0 && !progress.DayCompleted(progress.CurrentDay) && conv.RecentTopic() != string(IntentLogActivity) {
		out = append(out, Suggestion{Key: SuggestLogToday, Intent: IntentLogActivity})
	}
	if !progress.PitchDone && !conv.HasTopic(string(IntentPitchHelp)) {
		out = append(out, Suggestion{Key: SuggestBuildPitch, Intent: IntentPitchHelp})
	}
	return out
}
