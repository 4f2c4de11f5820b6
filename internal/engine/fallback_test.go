// internal/engine/fallback_test.go
package engine

import (
	"strings"
	"testing"

	"advisor-engine/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSmartFallback_MessageKey(t *testing.T) {
	e := newTestEngine(t)
	cc := ctxFor(ScreenAdvisor, "", 0)

	tests := []struct {
		input string
		want  string
	}{
		{"", FallbackEmpty},
		{"   ", FallbackEmpty},
		{"what is this?", FallbackQuestion},
		{"blorp", FallbackUnclear},
		{strings.Repeat("a", 501), FallbackTooLong},
		{string([]byte{0xff, 0x00}), FallbackUnclear},
	}
	for _, tt := range tests {
		got := e.GenerateSmartFallback(tt.input, cc)
		assert.Equal(t, tt.want, got.MessageKey)
		assert.GreaterOrEqual(t, len(got.SuggestionKeys), 3)
	}
}

func TestGenerateSmartFallback_UndiscussedFirst(t *testing.T) {
	e := newTestEngine(t)
	cc := ClassifyContext{
		Screen:       ScreenAdvisor,
		Conversation: models.ConversationContext{Topics: []string{"nextSteps", "pitchHelp"}},
	}

	got := e.GenerateSmartFallback("??", cc)
	assert.Equal(t, []string{SuggestRunCompass, SuggestCheckProfile, SuggestShowCapabilities, SuggestNextSteps}, got.SuggestionKeys)
}

func TestGenerateSmartFallback_ProgramScreen(t *testing.T) {
	e := newTestEngine(t)

	got := e.GenerateSmartFallback("hmm", ctxFor(ScreenProgram, "", 0))
	assert.Equal(t, []string{SuggestShowTactic, SuggestShowExercise, SuggestLogToday, SuggestShowCalendar}, got.SuggestionKeys)

	cc := ctxFor(ScreenProgram, "", 0)
	cc.Conversation.Topics = []string{"showTactic"}
	got = e.GenerateSmartFallback("hmm", cc)
	assert.Equal(t, []string{SuggestShowExercise, SuggestLogToday, SuggestShowCalendar, SuggestShareContext}, got.SuggestionKeys)
}
