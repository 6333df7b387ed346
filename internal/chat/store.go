package chat

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
)

const (
	ConversationsKey      = "conversations"
	ActiveConversationKey = "activeConversationId"

	// MaxConversations is how many conversations are kept, most recently updated first.
	MaxConversations = 50

	// maxStoredPreview is the longest attachment preview Cleanup leaves in place.
	maxStoredPreview = 1000
)

// SelectedModelKey is the key remembering the chosen model for a provider.
func SelectedModelKey(provider string) string {
	return "selected_model_" + provider
}

// KV is the key-value store conversations are kept in.
type KV interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

// Store reads and writes the conversation list.
type Store struct {
	kv  KV
	now func() time.Time
}

// NewStore returns a Store over kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// List returns all conversations, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if _, err := s.kv.Get(ctx, ConversationsKey, &convs); err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	sortByUpdated(convs)
	return convs, nil
}

// Load returns the conversation with id, or nil when there is none.
func (s *Store) Load(ctx context.Context, id string) (*Conversation, error) {
	convs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := lo.Find(convs, func(c Conversation) bool { return c.ID == id })
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// Save replaces the stored conversation with the same id, stamping UpdatedAt, or appends
// c. Only the MaxConversations most recent are kept.
func (s *Store) Save(ctx context.Context, c Conversation) error {
	convs, err := s.List(ctx)
	if err != nil {
		return err
	}
	_, idx, found := lo.FindIndexOf(convs, func(e Conversation) bool { return e.ID == c.ID })
	if found {
		c.UpdatedAt = s.now().UnixMilli()
		convs[idx] = c
	} else {
		convs = append(convs, c)
	}
	return s.write(ctx, convs)
}

// Replace overwrites the whole list.
func (s *Store) Replace(ctx context.Context, convs []Conversation) error {
	return s.write(ctx, append([]Conversation(nil), convs...))
}

func (s *Store) write(ctx context.Context, convs []Conversation) error {
	sortByUpdated(convs)
	if len(convs) > MaxConversations {
		convs = convs[:MaxConversations]
	}
	if convs == nil {
		convs = []Conversation{}
	}
	if err := s.kv.Set(ctx, ConversationsKey, convs); err != nil {
		return fmt.Errorf("failed to save conversations: %w", err)
	}
	return nil
}

// Delete removes the conversation with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	convs, err := s.List(ctx)
	if err != nil {
		return err
	}
	convs = lo.Filter(convs, func(c Conversation, _ int) bool { return c.ID != id })
	if err := s.kv.Set(ctx, ConversationsKey, convs); err != nil {
		return fmt.Errorf("failed to save conversations: %w", err)
	}
	return nil
}

// ActiveID returns the active conversation id, or "" when none is set.
func (s *Store) ActiveID(ctx context.Context) (string, error) {
	var id string
	if _, err := s.kv.Get(ctx, ActiveConversationKey, &id); err != nil {
		return "", fmt.Errorf("failed to load active conversation: %w", err)
	}
	return id, nil
}

// SetActiveID records id as active. An empty id clears it.
func (s *Store) SetActiveID(ctx context.Context, id string) error {
	if id == "" {
		return s.kv.Remove(ctx, ActiveConversationKey)
	}
	return s.kv.Set(ctx, ActiveConversationKey, id)
}

// SelectedModel returns the remembered model for provider.
func (s *Store) SelectedModel(ctx context.Context, provider string) (string, error) {
	var id string
	if _, err := s.kv.Get(ctx, SelectedModelKey(provider), &id); err != nil {
		return "", fmt.Errorf("failed to load selected model: %w", err)
	}
	return id, nil
}

// SetSelectedModel remembers id as the model for provider.
func (s *Store) SetSelectedModel(ctx context.Context, provider, id string) error {
	return s.kv.Set(ctx, SelectedModelKey(provider), id)
}

// CleanupResult reports what Cleanup changed.
type CleanupResult struct {
	StrippedPreviews int  `json:"strippedPreviews"`
	Reset            bool `json:"reset"`
}

// Cleanup drops oversized attachment previews. A list that cannot be decoded is removed.
func (s *Store) Cleanup(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult
	var convs []Conversation
	if _, err := s.kv.Get(ctx, ConversationsKey, &convs); err != nil {
		if rmErr := s.kv.Remove(ctx, ConversationsKey); rmErr != nil {
			return res, fmt.Errorf("failed to reset conversations: %w", rmErr)
		}
		res.Reset = true
		return res, nil
	}

	for i := range convs {
		for j := range convs[i].Messages {
			if len(convs[i].Messages[j].AttachmentPreview) > maxStoredPreview {
				convs[i].Messages[j].AttachmentPreview = ""
				res.StrippedPreviews++
			}
		}
	}
	if res.StrippedPreviews == 0 {
		return res, nil
	}
	if err := s.kv.Set(ctx, ConversationsKey, convs); err != nil {
		return res, fmt.Errorf("failed to save conversations: %w", err)
	}
	return res, nil
}

func sortByUpdated(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool { return convs[i].UpdatedAt > convs[j].UpdatedAt })
}
