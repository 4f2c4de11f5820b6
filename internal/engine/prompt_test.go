// internal/engine/prompt_test.go
package engine

import (
	"strings"
	"testing"

	"advisor-engine/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildExportPrompt(t *testing.T) {
	out := BuildExportPrompt(ExportInput{
		Screen:       ScreenAdvisor,
		Conversation: models.ConversationContext{MessageCount: 2, LastIntent: "pitchHelp", Topics: []string{"greeting", "pitchHelp"}},
		Situational:  models.SituationalData{BrandName: "Acme", Industry: "Fitness"},
		History: []models.Message{
			{Role: models.RoleUser, Content: "help with my pitch"},
			{Role: models.RoleAssistant, Content: "Sure."},
			{Role: models.RoleAssistant, Content: "   "},
		},
	})

	assert.Contains(t, out, "marketing strategy advisor")
	assert.Contains(t, out, "- Brand: Acme")
	assert.NotContains(t, out, "Objective")
	assert.Contains(t, out, "- Topics: greeting, pitchHelp")
	assert.Contains(t, out, "User: help with my pitch\nAdvisor: Sure.\n")
	assert.Equal(t, 2, strings.Count(out, "Advisor:")+strings.Count(out, "User:"))
}

func TestBuildExportPrompt_Empty(t *testing.T) {
	out := BuildExportPrompt(ExportInput{Screen: ScreenProgram})
	assert.Contains(t, out, "daily marketing program")
	assert.NotContains(t, out, "## Transcript")
}
