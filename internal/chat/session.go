package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/logging"
	"github.com/samber/lo"
)

var (
	// ErrNoModel is returned by Send before a model is known.
	ErrNoModel = errors.New("No model selected or available.")

	// ErrConversationNotFound is returned when switching to an unknown conversation.
	ErrConversationNotFound = errors.New("conversation not found")
)

// MissingKeyError is returned when no API key is stored for the session's provider.
type MissingKeyError struct {
	Provider string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("API Key for %s not found. Please add it in Settings.", e.Provider)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ai.ErrMissingAPIKey
}

// KeySource looks up API keys. An empty key with a nil error means none is stored.
type KeySource interface {
	Get(ctx context.Context, provider string) (string, error)
}

// Factory builds the adapter for a provider.
type Factory func(provider, apiKey string) (ai.Service, error)

// Session is one user's view of a conversation with a provider.
type Session struct {
	store   *Store
	keys    KeySource
	factory Factory
	now     func() time.Time

	// SystemPrompt is passed with every request. Empty lets the adapter pick.
	SystemPrompt string

	provider       string
	modelID        string
	models         []ai.Model
	conversationID string
	messages       []Message
}

// NewSession returns a session for provider with no conversation loaded.
func NewSession(store *Store, keys KeySource, factory Factory, provider string) *Session {
	return &Session{store: store, keys: keys, factory: factory, now: time.Now, provider: provider}
}

func (s *Session) Provider() string       { return s.provider }
func (s *Session) ModelID() string        { return s.modelID }
func (s *Session) Models() []ai.Model     { return s.models }
func (s *Session) ConversationID() string { return s.conversationID }

// Messages returns the in-memory messages of the active conversation.
func (s *Session) Messages() []Message {
	return append([]Message(nil), s.messages...)
}

// Restore cleans stored data and reloads the active conversation.
func (s *Session) Restore(ctx context.Context) error {
	if res, err := s.store.Cleanup(ctx); err != nil {
		logging.Warn("storage cleanup failed", "error", err)
	} else if res.Reset || res.StrippedPreviews > 0 {
		logging.Debug("cleaned stored conversations", "reset", res.Reset, "stripped", res.StrippedPreviews)
	}

	id, err := s.store.ActiveID(ctx)
	if err != nil || id == "" {
		return err
	}
	c, err := s.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if c != nil {
		s.conversationID = c.ID
		s.messages = c.Messages
	}
	return nil
}

// LoadModels fetches the provider's models and resolves the current one: the remembered
// choice when still offered, else the first model. Without a key the list is empty.
func (s *Session) LoadModels(ctx context.Context) ([]ai.Model, error) {
	s.models = nil
	key, err := s.keys.Get(ctx, s.provider)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, nil
	}
	svc, err := s.factory(s.provider, key)
	if err != nil {
		return nil, err
	}
	models, err := svc.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	s.models = models

	saved, err := s.store.SelectedModel(ctx, s.provider)
	if err != nil {
		logging.Warn("failed to read selected model", "provider", s.provider, "error", err)
	}
	switch {
	case saved != "" && lo.ContainsBy(models, func(m ai.Model) bool { return m.ID == saved }):
		s.modelID = saved
	case len(models) > 0:
		s.modelID = models[0].ID
	}
	if s.modelID != "" && s.modelID != saved {
		s.remember(ctx)
	}
	return models, nil
}

// SetModel selects a model and remembers it for the provider.
func (s *Session) SetModel(ctx context.Context, id string) {
	if id == "" || id == s.modelID {
		return
	}
	s.modelID = id
	s.remember(ctx)
}

func (s *Session) remember(ctx context.Context) {
	if err := s.store.SetSelectedModel(ctx, s.provider, s.modelID); err != nil {
		logging.Warn("failed to remember model", "provider", s.provider, "error", err)
	}
}

// SetProvider switches provider and reloads its models.
func (s *Session) SetProvider(ctx context.Context, provider string) ([]ai.Model, error) {
	s.provider = provider
	s.modelID = ""
	return s.LoadModels(ctx)
}

// Send appends a user message, asks the provider and appends the reply. A failed request
// is recorded as an error reply and also returned.
func (s *Session) Send(ctx context.Context, content string, att *ai.Attachment) (Message, error) {
	if s.modelID == "" {
		return Message{}, ErrNoModel
	}

	if s.conversationID == "" {
		c := NewConversation(s.provider, s.modelID, s.now())
		s.conversationID = c.ID
		s.messages = nil
		if err := s.store.SetActiveID(ctx, c.ID); err != nil {
			logging.Warn("failed to set active conversation", "id", c.ID, "error", err)
		}
		if err := s.store.Save(ctx, c); err != nil {
			logging.Warn("failed to save conversation", "id", c.ID, "error", err)
		}
	}

	ts := s.now().UnixMilli()
	user := Message{
		ID:        strconv.FormatInt(ts, 10),
		Role:      RoleUser,
		Content:   content,
		Timestamp: ts,
		Provider:  s.provider,
		ModelID:   s.modelID,
	}
	if att != nil {
		user.AttachmentName = att.Name
		if att.Type == ai.AttachmentImage {
			user.AttachmentPreview = att.Content
		}
	}
	s.messages = append(s.messages, user)

	text, err := s.ask(ctx, content, att)
	reply := Message{
		ID:        strconv.FormatInt(ts+1, 10),
		Role:      RoleAssistant,
		Content:   text,
		Timestamp: s.now().UnixMilli(),
		Provider:  s.provider,
		ModelID:   s.modelID,
	}
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Something went wrong."
		}
		reply.Content = "Error: " + msg
		reply.IsError = true
	}
	s.messages = append(s.messages, reply)
	s.persist(ctx)
	return reply, err
}

func (s *Session) ask(ctx context.Context, content string, att *ai.Attachment) (string, error) {
	key, err := s.keys.Get(ctx, s.provider)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", &MissingKeyError{Provider: s.provider}
	}
	svc, err := s.factory(s.provider, key)
	if err != nil {
		return "", err
	}
	req := ai.SendRequest{
		Message:      content,
		Model:        s.modelID,
		SystemPrompt: s.SystemPrompt,
		Attachment:   att,
	}
	if st, ok := svc.(ai.Streamer); ok {
		var b strings.Builder
		err := st.Stream(ctx, req, func(chunk string) { b.WriteString(chunk) })
		return b.String(), err
	}
	return svc.Send(ctx, req)
}

// persist writes the messages without previews. Failures are logged.
func (s *Session) persist(ctx context.Context) {
	light := stripPreviews(s.messages)
	c, err := s.store.Load(ctx, s.conversationID)
	if err != nil {
		logging.Warn("failed to persist messages", "id", s.conversationID, "error", err)
		return
	}
	if c == nil {
		fresh := NewConversation(s.provider, s.modelID, s.now())
		fresh.ID = s.conversationID
		c = &fresh
	}
	c.Messages = light
	c.Title = GenerateTitle(light)
	c.UpdatedAt = s.now().UnixMilli()
	if err := s.store.Save(ctx, *c); err != nil {
		logging.Warn("failed to persist messages", "id", s.conversationID, "error", err)
	}
}

// SwitchConversation makes id the active conversation.
func (s *Session) SwitchConversation(ctx context.Context, id string) error {
	c, err := s.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	s.conversationID = c.ID
	s.messages = c.Messages
	return s.store.SetActiveID(ctx, c.ID)
}

// StartNewChat creates, saves and activates an empty conversation.
func (s *Session) StartNewChat(ctx context.Context) (Conversation, error) {
	c := NewConversation(s.provider, s.modelID, s.now())
	s.conversationID = c.ID
	s.messages = nil
	if err := s.store.SetActiveID(ctx, c.ID); err != nil {
		return c, err
	}
	return c, s.store.Save(ctx, c)
}

// RemoveConversation deletes id, clearing the session when it was active.
func (s *Session) RemoveConversation(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.conversationID != id {
		return nil
	}
	s.conversationID = ""
	s.messages = nil
	return s.store.SetActiveID(ctx, "")
}

// ClearMessages empties the in-memory messages. Stored history is untouched.
func (s *Session) ClearMessages() {
	s.messages = nil
}
