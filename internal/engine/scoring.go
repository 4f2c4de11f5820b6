// internal/engine/scoring.go
package engine

import (
	"math"
	"strings"

	"advisor-engine/internal/models"
)

var baseRequiredFields = []string{SlotBrandName, SlotIndustry, SlotObjective}

var extraRequiredFields = map[IntentID][]string{
	IntentPitchHelp:       {SlotTargetAudience},
	IntentCompassAnalysis: {SlotTargetAudience},
	IntentShowTactic:      {"currentDay"},
	IntentShowExercise:    {"currentDay"},
	IntentLogActivity:     {"currentDay"},
}

// ResponseScore says how much to trust a reply given the profile data
// available when it was produced.
type ResponseScore struct {
	Confidence float64  `json:"confidence"`
	Missing    []string `json:"missing,omitempty"`
	Disclaimer bool     `json:"disclaimer"`
}

// ScoreResponse rates the local reply for intent. Missing required profile
// fields pull the confidence down; a topic already covered nudges it up.
func (e *Engine) ScoreResponse(intent IntentID, conv models.ConversationContext, data models.SituationalData) ResponseScore {
	required := append(append([]string{}, baseRequiredFields...), extraRequiredFields[intent]...)

	var missing []string
	for _, f := range required {
		if !fieldPresent(f, data) {
			missing = append(missing, f)
		}
	}

	ratio := float64(len(required)-len(missing)) / float64(len(required))
	confidence := 0.2 + 0.75*ratio
	if conv.HasTopic(string(intent)) {
		confidence += 0.05
	}
	confidence = math.Min(1, math.Round(confidence*1000)/1000)

	return ResponseScore{
		Confidence: confidence,
		Missing:    missing,
		Disclaimer: confidence < e.cfg.DisclaimerBelow,
	}
}

func fieldPresent(field string, data models.SituationalData) bool {
	switch field {
	case SlotBrandName:
		return strings.TrimSpace(data.BrandName) != ""
	case SlotIndustry:
		return strings.TrimSpace(data.Industry) != ""
	case SlotObjective:
		return strings.TrimSpace(data.Objective) != ""
	case SlotTargetAudience:
		return strings.TrimSpace(data.TargetAudience) != ""
	case "currentDay":
		return data.CurrentDay > 0
	}
	return false
}
