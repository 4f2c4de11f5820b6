// internal/coordinator/queries.go
package coordinator

import (
	"context"

	"advisor-engine/internal/archive"
	apperrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/engine"
	"advisor-engine/internal/models"
)

// SuggestionView pairs a suggestion key with its display text.
type SuggestionView struct {
	engine.Suggestion
	Text string `json:"text"`
}

// Context returns the stored conversation context, or the default one.
func (c *Coordinator) Context(ctx context.Context, profileID string) models.ConversationContext {
	conv, err := c.repo.LoadContext(ctx, profileID)
	if err != nil {
		c.logger.Warn("context read failed", map[string]interface{}{"profileId": profileID, "error": err.Error()})
	}
	return conv
}

// Reset overwrites the stored context with the default. It waits for any
// in-flight turn of the profile.
func (c *Coordinator) Reset(ctx context.Context, profileID string) (models.ConversationContext, error) {
	release, err := c.seq.acquire(ctx, profileID)
	if err != nil {
		return models.DefaultConversationContext(), apperrors.NewInternalError(err)
	}
	defer release()

	conv, err := c.repo.ResetContext(ctx, profileID)
	if err != nil {
		return conv, err
	}
	c.logger.Info("conversation context reset", map[string]interface{}{"profileId": profileID})
	return conv, nil
}

// Suggestions lists proactive next actions for the profile.
func (c *Coordinator) Suggestions(ctx context.Context, profileID string, progress models.ProgressData) []SuggestionView {
	conv := c.Context(ctx, profileID)
	tpl := c.engine.Templates()

	out := []SuggestionView{}
	for _, s := range engine.GetProactiveSuggestions(conv, progress) {
		out = append(out, SuggestionView{Suggestion: s, Text: tpl.Message(s.Key)})
	}
	return out
}

// ExportPrompt builds the copy-paste prompt from stored context and history.
func (c *Coordinator) ExportPrompt(ctx context.Context, profileID string, screen engine.Screen, data models.SituationalData, progress models.ProgressData) string {
	conv := c.Context(ctx, profileID)
	history, err := c.repo.LoadHistory(ctx, profileID)
	if err != nil {
		c.logger.Warn("history read failed", map[string]interface{}{"profileId": profileID, "error": err.Error()})
	}
	return engine.BuildExportPrompt(engine.ExportInput{
		Screen:       screen,
		Conversation: conv,
		Situational:  data,
		Progress:     progress,
		History:      history.Messages,
	})
}

// RecentTurns lists the newest archived turns of the profile. An archive
// that cannot be searched yields an empty list.
func (c *Coordinator) RecentTurns(ctx context.Context, profileID string, size int) ([]archive.TurnRecord, error) {
	s, ok := c.archiver.(archive.Searcher)
	if !ok {
		return []archive.TurnRecord{}, nil
	}
	return s.Recent(ctx, profileID, size)
}

// Ready reports whether the backing store answers.
func (c *Coordinator) Ready(ctx context.Context) error {
	return c.repo.Ping(ctx)
}
