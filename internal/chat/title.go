package chat

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	// DefaultTitle names a conversation with no user message yet.
	DefaultTitle = "New Chat"

	titleMaxRunes = 40
)

var bracketed = regexp.MustCompile(`\[.*?\]`)

// GenerateTitle derives a title from the first user message, dropping [...] segments.
func GenerateTitle(msgs []Message) string {
	first, ok := lo.Find(msgs, func(m Message) bool { return m.Role == RoleUser })
	if !ok {
		return DefaultTitle
	}
	text := strings.TrimSpace(bracketed.ReplaceAllString(first.Content, ""))
	if r := []rune(text); len(r) > titleMaxRunes {
		return string(r[:titleMaxRunes]) + "..."
	}
	if text == "" {
		return DefaultTitle
	}
	return text
}

// NewConversation returns an empty conversation stamped with now.
func NewConversation(provider, modelID string, now time.Time) Conversation {
	ms := now.UnixMilli()
	return Conversation{
		ID:        fmt.Sprintf("conv_%d_%s", ms, uuid.NewString()[:5]),
		Title:     DefaultTitle,
		Messages:  []Message{},
		Provider:  provider,
		ModelID:   modelID,
		CreatedAt: ms,
		UpdatedAt: ms,
	}
}
