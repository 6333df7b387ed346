// Package chat persists conversations and drives a single chat session.
package chat

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation. Timestamps are Unix milliseconds.
type Message struct {
	ID                string `json:"id"`
	Role              Role   `json:"role"`
	Content           string `json:"content"`
	Timestamp         int64  `json:"timestamp"`
	Provider          string `json:"provider,omitempty"`
	ModelID           string `json:"modelId,omitempty"`
	IsError           bool   `json:"isError,omitempty"`
	AttachmentPreview string `json:"attachmentPreview,omitempty"`
	AttachmentName    string `json:"attachmentName,omitempty"`
}

// Conversation is a titled list of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Provider  string    `json:"provider"`
	ModelID   string    `json:"modelId"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}

func stripPreviews(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		m.AttachmentPreview = ""
		out[i] = m
	}
	return out
}
