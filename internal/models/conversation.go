// internal/models/conversation.go
package models

// ConversationContext is the durable per-profile record the engine threads
// through every turn. It is persisted after each mutation.
type ConversationContext struct {
	MessageCount  int      `json:"messageCount"`
	LastIntent    string   `json:"lastIntent"`
	FollowUpCount int      `json:"followUpCount"`
	Topics        []string `json:"topics"`
}

// DefaultConversationContext is the value used on first mount, on reset and
// whenever a stored blob is missing or unreadable.
func DefaultConversationContext() ConversationContext {
	return ConversationContext{Topics: []string{}}
}

// HasTopic reports whether the intent was seen at any point in the session.
func (c ConversationContext) HasTopic(intent string) bool {
	for _, t := range c.Topics {
		if t == intent {
			return true
		}
	}
	return false
}

// RecentTopic returns the most recently appended topic, or "" when none.
func (c ConversationContext) RecentTopic() string {
	if len(c.Topics) == 0 {
		return ""
	}
	return c.Topics[len(c.Topics)-1]
}

// Clone returns a deep copy so callers can derive new values without aliasing Topics.
func (c ConversationContext) Clone() ConversationContext {
	out := c
	out.Topics = make([]string, len(c.Topics))
	copy(out.Topics, c.Topics)
	return out
}
