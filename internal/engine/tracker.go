// internal/engine/tracker.go
package engine

import (
	"advisor-engine/internal/models"
)

// InitConversationContext returns the default context used on first mount
// and on manual reset.
func InitConversationContext() models.ConversationContext {
	return models.DefaultConversationContext()
}

// UpdateConversationContext returns the context after one completed turn.
// The input context is never mutated.
func (e *Engine) UpdateConversationContext(conv models.ConversationContext, input string, intent Intent, entities Entities) models.ConversationContext {
	next := conv.Clone()
	if next.Topics == nil {
		next.Topics = []string{}
	}
	next.MessageCount++

	id := string(intent.Intent)
	if id == "" {
		id = string(IntentUnknown)
	}

	if id == conv.LastIntent {
		next.FollowUpCount++
		return next
	}

	next.FollowUpCount = 0
	next.LastIntent = id
	if next.RecentTopic() != id {
		next.Topics = append(next.Topics, id)
	}
	if max := e.cfg.MaxTopics; max > 0 && len(next.Topics) > max {
		next.Topics = append([]string{}, next.Topics[len(next.Topics)-max:]...)
	}
	return next
}

// LearnFromInteraction is the adaptation hook. Weights are not persisted
// across sessions, so it only records the observation.
func (e *Engine) LearnFromInteraction(conv models.ConversationContext, intent Intent) {
	e.logger.Debug("interaction observed", map[string]interface{}{
		"intent":        string(intent.Intent),
		"score":         intent.Score,
		"messageCount":  conv.MessageCount,
		"followUpCount": conv.FollowUpCount,
	})
}

// StuckResult tells the caller whether to short-circuit normal handling.
type StuckResult struct {
	ShouldIntervene bool     `json:"shouldIntervene"`
	Topic           IntentID `json:"topic,omitempty"`
}

// DetectStuckUser intervenes once the same recognized, non-greeting intent has been
// repeated StuckThreshold times after its first occurrence.
func (e *Engine) DetectStuckUser(conv models.ConversationContext) StuckResult {
	topic := IntentID(conv.LastIntent)
	if topic == "" || topic == IntentGreeting || topic == IntentUnknown {
		return StuckResult{Topic: topic}
	}
	return StuckResult{
		ShouldIntervene: conv.FollowUpCount >= e.cfg.StuckThreshold,
		Topic:           topic,
	}
}
