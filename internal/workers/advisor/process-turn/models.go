// internal/workers/advisor/process-turn/models.go
package processturn

import (
	"advisor-engine/internal/engine"
	"advisor-engine/internal/models"
)

// Input is read from the process variables. BPMN callers are trusted to
// state authentication directly.
type Input struct {
	// TurnID comes from the job key, so a redelivered job replays its turn.
	TurnID        string                 `json:"-"`
	ProfileID     string                 `json:"profileId"`
	Screen        string                 `json:"screen"`
	Input         string                 `json:"input"`
	Authenticated bool                   `json:"authenticated"`
	Situational   models.SituationalData `json:"situational"`
	Progress      models.ProgressData    `json:"progress"`
}

type Output struct {
	TurnID       string          `json:"turnId"`
	Sequence     int             `json:"sequence"`
	Intent       string          `json:"intent"`
	IntentScore  float64         `json:"intentScore"`
	Text         string          `json:"replyText"`
	Source       string          `json:"replySource"`
	QuickChoices []string        `json:"quickChoices"`
	Effects      []engine.Effect `json:"effects"`
	Stuck        bool            `json:"stuck"`
	Confidence   float64         `json:"confidence"`
}
