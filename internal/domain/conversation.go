package domain

import "time"

// Message roles as sent to the completion service.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single persisted conversation turn. Timestamp is storage
// metadata and is stripped before the message reaches the model.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatMessage is the provider-agnostic chat message shape handed to the
// completion service.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered transcript for one (user, project) pair.
// Messages are append-only; the whole object is rewritten on every save.
type Conversation struct {
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewConversation returns an empty transcript stamped with now.
func NewConversation(now time.Time) Conversation {
	return Conversation{
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a turn to the transcript and bumps UpdatedAt.
func (c *Conversation) Append(role, content string, now time.Time) {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	c.UpdatedAt = now
}
