package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memKV is an in-memory KV that round-trips values through JSON like the real store.
type memKV struct {
	data   map[string]string
	setErr error
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(raw), dst)
}

func (m *memKV) Set(_ context.Context, key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = string(b)
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestStoreSaveAndList(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemKV())
	s.now = fixedClock(5000)

	require.NoError(t, s.Save(ctx, Conversation{ID: "a", UpdatedAt: 1000}))
	require.NoError(t, s.Save(ctx, Conversation{ID: "b", UpdatedAt: 3000}))
	require.NoError(t, s.Save(ctx, Conversation{ID: "c", UpdatedAt: 2000}))

	convs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(convs))

	// Re-saving an existing conversation stamps it with now.
	require.NoError(t, s.Save(ctx, Conversation{ID: "a", Title: "renamed", UpdatedAt: 1}))
	convs, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(convs))
	assert.Equal(t, int64(5000), convs[0].UpdatedAt)
	assert.Equal(t, "renamed", convs[0].Title)
}

func TestStoreSaveTrimsToFifty(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemKV())

	for i := 0; i < MaxConversations+5; i++ {
		require.NoError(t, s.Save(ctx, Conversation{ID: fmt.Sprintf("c%d", i), UpdatedAt: int64(i)}))
	}
	convs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, convs, MaxConversations)
	assert.Equal(t, "c54", convs[0].ID)
	assert.Equal(t, "c5", convs[len(convs)-1].ID)
}

func TestStoreLoadAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemKV())

	c, err := s.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, c)

	require.NoError(t, s.Save(ctx, Conversation{ID: "x", Title: "X"}))
	c, err = s.Load(ctx, "x")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "X", c.Title)

	require.NoError(t, s.Delete(ctx, "x"))
	c, err = s.Load(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestStoreActiveID(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	s := NewStore(kv)

	id, err := s.ActiveID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.SetActiveID(ctx, "conv_1"))
	id, err = s.ActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "conv_1", id)

	require.NoError(t, s.SetActiveID(ctx, ""))
	_, present := kv.data[ActiveConversationKey]
	assert.False(t, present)
}

func TestStoreSelectedModel(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	s := NewStore(kv)

	require.NoError(t, s.SetSelectedModel(ctx, "groq", "llama-3.1-8b-instant"))
	assert.Contains(t, kv.data, "selected_model_groq")
	id, err := s.SelectedModel(ctx, "groq")
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", id)
}

func TestStoreCleanupStripsLargePreviews(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	s := NewStore(kv)

	big := "data:image/png;base64," + strings.Repeat("A", 2000)
	require.NoError(t, kv.Set(ctx, ConversationsKey, []Conversation{{
		ID: "a",
		Messages: []Message{
			{ID: "1", Role: RoleUser, AttachmentPreview: big},
			{ID: "2", Role: RoleUser, AttachmentPreview: "small"},
		},
	}}))

	res, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, CleanupResult{StrippedPreviews: 1}, res)

	c, err := s.Load(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Empty(t, c.Messages[0].AttachmentPreview)
	assert.Equal(t, "small", c.Messages[1].AttachmentPreview)
}

func TestStoreCleanupResetsBrokenData(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data[ConversationsKey] = `{"broken":true}`
	s := NewStore(kv)

	res, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.True(t, res.Reset)
	_, present := kv.data[ConversationsKey]
	assert.False(t, present)
}

func TestStoreSaveError(t *testing.T) {
	kv := newMemKV()
	kv.setErr = errors.New("quota exceeded")
	s := NewStore(kv)

	err := s.Save(context.Background(), Conversation{ID: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name string
		msgs []Message
		want string
	}{
		{"no messages", nil, "New Chat"},
		{"only assistant", []Message{{Role: RoleAssistant, Content: "hi"}}, "New Chat"},
		{"short", []Message{{Role: RoleAssistant, Content: "x"}, {Role: RoleUser, Content: "  Hello world "}}, "Hello world"},
		{"brackets removed", []Message{{Role: RoleUser, Content: "[Image] What is this?"}}, "What is this?"},
		{"only brackets", []Message{{Role: RoleUser, Content: "[a][b]"}}, "New Chat"},
		{"truncated", []Message{{Role: RoleUser, Content: strings.Repeat("abcdefghij", 5)}}, strings.Repeat("abcdefghij", 4) + "..."},
		{"exactly forty", []Message{{Role: RoleUser, Content: strings.Repeat("x", 40)}}, strings.Repeat("x", 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateTitle(tt.msgs))
		})
	}
}

func TestNewConversation(t *testing.T) {
	c := NewConversation("gemini", "gemini-2.0-flash", time.UnixMilli(1700000000000))
	assert.Regexp(t, `^conv_1700000000000_[0-9a-z]{5}$`, c.ID)
	assert.Equal(t, "New Chat", c.Title)
	assert.Equal(t, int64(1700000000000), c.CreatedAt)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	assert.NotNil(t, c.Messages)
}

func ids(convs []Conversation) []string {
	out := make([]string, len(convs))
	for i, c := range convs {
		out[i] = c.ID
	}
	return out
}
