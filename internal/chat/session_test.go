package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/multiai/cli/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeService struct {
	ModelsFunc func(ctx context.Context) ([]ai.Model, error)
	SendFunc   func(ctx context.Context, req ai.SendRequest) (string, error)
}

func (f *FakeService) Models(ctx context.Context) ([]ai.Model, error) {
	if f.ModelsFunc != nil {
		return f.ModelsFunc(ctx)
	}
	return []ai.Model{{ID: "m1", Name: "M1"}, {ID: "m2", Name: "M2"}}, nil
}

func (f *FakeService) Send(ctx context.Context, req ai.SendRequest) (string, error) {
	if f.SendFunc != nil {
		return f.SendFunc(ctx, req)
	}
	return "reply to " + req.Message, nil
}

type fakeKeys map[string]string

func (k fakeKeys) Get(_ context.Context, provider string) (string, error) {
	return k[provider], nil
}

func newTestSession(t *testing.T, svc *FakeService, keys fakeKeys) (*Session, *Store) {
	t.Helper()
	store := NewStore(newMemKV())
	factory := func(provider, apiKey string) (ai.Service, error) { return svc, nil }
	s := NewSession(store, keys, factory, "openai")
	s.now = fixedClock(1000)
	store.now = fixedClock(1000)
	return s, store
}

func TestSessionSendNoModel(t *testing.T) {
	s, _ := newTestSession(t, &FakeService{}, fakeKeys{"openai": "k"})
	_, err := s.Send(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrNoModel)
	assert.Equal(t, "No model selected or available.", err.Error())
	assert.Empty(t, s.Messages())
}

func TestSessionSendPersistsConversation(t *testing.T) {
	ctx := context.Background()
	var got ai.SendRequest
	svc := &FakeService{SendFunc: func(_ context.Context, req ai.SendRequest) (string, error) {
		got = req
		return "It is a cat.", nil
	}}
	s, store := newTestSession(t, svc, fakeKeys{"openai": "k"})
	s.SystemPrompt = "Be terse."

	_, err := s.LoadModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m1", s.ModelID())

	att := &ai.Attachment{Type: ai.AttachmentImage, Content: "data:image/png;base64,AAAA", Name: "cat.png"}
	reply, err := s.Send(ctx, "What is this?", att)
	require.NoError(t, err)
	assert.Equal(t, "It is a cat.", reply.Content)
	assert.Equal(t, RoleAssistant, reply.Role)
	assert.Equal(t, "Be terse.", got.SystemPrompt)
	assert.Equal(t, "m1", got.Model)
	assert.Same(t, att, got.Attachment)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "data:image/png;base64,AAAA", msgs[0].AttachmentPreview)
	assert.Equal(t, "cat.png", msgs[0].AttachmentName)
	assert.Equal(t, "1000", msgs[0].ID)
	assert.Equal(t, "1001", msgs[1].ID)

	active, err := store.ActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.ConversationID(), active)

	c, err := store.Load(ctx, active)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "What is this?", c.Title)
	require.Len(t, c.Messages, 2)
	assert.Empty(t, c.Messages[0].AttachmentPreview)
	assert.Equal(t, "cat.png", c.Messages[0].AttachmentName)
}

func TestSessionSendMissingKey(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, &FakeService{}, fakeKeys{})
	s.SetModel(ctx, "gpt-4o")

	reply, err := s.Send(ctx, "hello", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrMissingAPIKey)
	assert.True(t, reply.IsError)
	assert.Equal(t, "Error: API Key for openai not found. Please add it in Settings.", reply.Content)

	c, err := store.Load(ctx, s.ConversationID())
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Len(t, c.Messages, 2)
	assert.True(t, c.Messages[1].IsError)
}

func TestSessionSendVendorError(t *testing.T) {
	ctx := context.Background()
	svc := &FakeService{SendFunc: func(context.Context, ai.SendRequest) (string, error) {
		return "", &ai.APIError{Vendor: "OpenAI", StatusCode: 429, Message: "Rate limit reached"}
	}}
	s, _ := newTestSession(t, svc, fakeKeys{"openai": "k"})
	s.SetModel(ctx, "gpt-4o")

	reply, err := s.Send(ctx, "hello", nil)
	require.Error(t, err)
	assert.Equal(t, "Error: Rate limit reached", reply.Content)
	assert.True(t, reply.IsError)
}

func TestSessionPersistFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	store := NewStore(kv)
	svc := &FakeService{}
	s := NewSession(store, fakeKeys{"openai": "k"}, func(string, string) (ai.Service, error) { return svc, nil }, "openai")
	s.SetModel(ctx, "m1")
	kv.setErr = errors.New("disk full")

	reply, err := s.Send(ctx, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "reply to hi", reply.Content)
	assert.Len(t, s.Messages(), 2)
}

func TestSessionLoadModelsRemembersSelection(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, &FakeService{}, fakeKeys{"openai": "k"})
	require.NoError(t, store.SetSelectedModel(ctx, "openai", "m2"))

	models, err := s.LoadModels(ctx)
	require.NoError(t, err)
	assert.Len(t, models, 2)
	assert.Equal(t, "m2", s.ModelID())

	require.NoError(t, store.SetSelectedModel(ctx, "openai", "gone"))
	_, err = s.LoadModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m1", s.ModelID())
	saved, err := store.SelectedModel(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "m1", saved)
}

func TestSessionLoadModelsWithoutKey(t *testing.T) {
	s, _ := newTestSession(t, &FakeService{}, fakeKeys{})
	models, err := s.LoadModels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, models)
	assert.Empty(t, s.ModelID())
}

func TestSessionRestoreAndSwitch(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, &FakeService{}, fakeKeys{"openai": "k"})

	require.NoError(t, store.Save(ctx, Conversation{ID: "a", Messages: []Message{{ID: "1", Role: RoleUser, Content: "first"}}}))
	require.NoError(t, store.Save(ctx, Conversation{ID: "b", Messages: []Message{{ID: "2", Role: RoleUser, Content: "second"}}}))
	require.NoError(t, store.SetActiveID(ctx, "a"))

	require.NoError(t, s.Restore(ctx))
	assert.Equal(t, "a", s.ConversationID())
	require.Len(t, s.Messages(), 1)
	assert.Equal(t, "first", s.Messages()[0].Content)

	require.NoError(t, s.SwitchConversation(ctx, "b"))
	assert.Equal(t, "b", s.ConversationID())
	active, err := store.ActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", active)

	err = s.SwitchConversation(ctx, "zzz")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.Equal(t, "b", s.ConversationID())
}

func TestSessionStartNewChatAndRemove(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, &FakeService{}, fakeKeys{"openai": "k"})
	s.SetModel(ctx, "m1")

	c, err := s.StartNewChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.ID, s.ConversationID())
	assert.Equal(t, "m1", c.ModelID)

	other := NewConversation("openai", "m1", fixedClock(10)())
	other.ID = "other"
	require.NoError(t, store.Save(ctx, other))

	require.NoError(t, s.RemoveConversation(ctx, "other"))
	assert.Equal(t, c.ID, s.ConversationID())

	require.NoError(t, s.RemoveConversation(ctx, c.ID))
	assert.Empty(t, s.ConversationID())
	active, err := store.ActiveID(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	convs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestSessionClearMessagesKeepsHistory(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, &FakeService{}, fakeKeys{"openai": "k"})
	s.SetModel(ctx, "m1")
	_, err := s.Send(ctx, "hi", nil)
	require.NoError(t, err)

	s.ClearMessages()
	assert.Empty(t, s.Messages())
	c, err := store.Load(ctx, s.ConversationID())
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Messages, 2)
}

type fakeStreamer struct {
	FakeService
	chunks []string
}

func (f *fakeStreamer) Stream(_ context.Context, _ ai.SendRequest, onChunk func(string)) error {
	for _, c := range f.chunks {
		onChunk(c)
	}
	return nil
}

func TestSessionSendPrefersStreaming(t *testing.T) {
	ctx := context.Background()
	svc := &fakeStreamer{
		FakeService: FakeService{SendFunc: func(context.Context, ai.SendRequest) (string, error) {
			return "", errors.New("Send should not be called")
		}},
		chunks: []string{"Hel", "lo"},
	}
	store := NewStore(newMemKV())
	s := NewSession(store, fakeKeys{"openai": "k"}, func(string, string) (ai.Service, error) { return svc, nil }, "openai")
	s.SetModel(ctx, "m1")

	reply, err := s.Send(ctx, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", reply.Content)
}
