// internal/models/message.go
package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat bubble. The engine reads history but never owns it.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Streaming bool      `json:"streaming,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatHistory is the persisted, ordered message list for one profile.
type ChatHistory struct {
	Messages []Message `json:"messages"`
}

// Append adds messages and keeps at most limit entries, dropping the oldest.
// A non-positive limit keeps everything.
func (h ChatHistory) Append(limit int, msgs ...Message) ChatHistory {
	out := make([]Message, 0, len(h.Messages)+len(msgs))
	out = append(out, h.Messages...)
	out = append(out, msgs...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return ChatHistory{Messages: out}
}
