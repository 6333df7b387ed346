package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/attach"
	"github.com/multiai/cli/internal/capture"
	"github.com/multiai/cli/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeScreenshotter struct {
	CaptureFunc func(ctx context.Context, url string) ([]byte, error)
}

func (f *FakeScreenshotter) Capture(ctx context.Context, url string) ([]byte, error) {
	if f.CaptureFunc != nil {
		return f.CaptureFunc(ctx, url)
	}
	return []byte("png-bytes"), nil
}

func (f *FakeScreenshotter) CaptureAttachment(ctx context.Context, url string) (*ai.Attachment, error) {
	png, err := f.Capture(ctx, url)
	if err != nil {
		return nil, err
	}
	return &ai.Attachment{Type: ai.AttachmentImage, Content: capture.DataURL(png), Name: "screenshot-1.png", MimeType: "image/png"}, nil
}

type FakeClipboardWatcher struct {
	RunFunc func(ctx context.Context, found func(*ai.Attachment))
}

func (f *FakeClipboardWatcher) Run(ctx context.Context, found func(*ai.Attachment)) {
	if f.RunFunc != nil {
		f.RunFunc(ctx, found)
	}
}

func newTestChat(t *testing.T, a *app, s *chat.Session, input ...string) ChatCmd {
	t.Helper()
	return ChatCmd{
		session: s,
		history: a.chats,
		capture: &FakeScreenshotter{},
		load:    attach.Load,
		tr:      a.tr,
		render:  testRenderer(t),
		name:    "Gemini",
		in:      inputLines(input...),
	}
}

func TestChat_SendsAndPersists(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.keys.Set(ctx, "gemini", "k"))

	var got []ai.SendRequest
	svc := &FakeAIService{SendFunc: func(ctx context.Context, req ai.SendRequest) (string, error) {
		got = append(got, req)
		return "reply to " + req.Message, nil
	}}
	s := testSession(t, a, svc)
	c := newTestChat(t, a, s, "hello there", "/history", "/quit")

	require.NoError(t, c.Run(ctx, ChatInput{}))

	out := buf.String()
	assert.Contains(t, out, "Start chat with Gemini")
	assert.Contains(t, out, "Using model m1")
	assert.Contains(t, out, "reply to hello there")
	assert.Contains(t, out, "hello there")
	assert.Contains(t, out, "Bye!")

	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].Model)

	convs, err := a.chats.List(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "hello there", convs[0].Title)
	assert.Len(t, convs[0].Messages, 2)
	assert.Contains(t, out, convs[0].ID)
}

func TestChat_NoKey(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	s := testSession(t, a, &FakeAIService{})
	c := newTestChat(t, a, s, "hi", "/q")

	require.NoError(t, c.Run(context.Background(), ChatInput{}))

	out := buf.String()
	assert.Contains(t, out, "No models available for gemini")
	assert.Contains(t, out, chat.ErrNoModel.Error())
}

func TestChat_ErrorReplyIsShown(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	require.NoError(t, a.keys.Set(context.Background(), "gemini", "k"))
	svc := &FakeAIService{SendFunc: func(ctx context.Context, req ai.SendRequest) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	c := newTestChat(t, a, testSession(t, a, svc), "hi", "/exit")

	require.NoError(t, c.Run(context.Background(), ChatInput{}))
	assert.Contains(t, buf.String(), "Error: quota exceeded")
}

func TestChat_Commands(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.keys.Set(ctx, "gemini", "k"))

	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("some notes"), 0o600))

	var got []ai.SendRequest
	svc := &FakeAIService{SendFunc: func(ctx context.Context, req ai.SendRequest) (string, error) {
		got = append(got, req)
		return "ok", nil
	}}
	s := testSession(t, a, svc)
	c := newTestChat(t, a, s,
		"/model",
		"/model nope",
		"/model m2",
		"/attach "+notes,
		"summarize",
		"/screenshot https://example.com",
		"what is this",
		"/bogus",
		"/new",
		"/help",
		"/quit",
	)

	require.NoError(t, c.Run(ctx, ChatInput{}))

	out := buf.String()
	assert.Contains(t, out, "Model Two")
	assert.Contains(t, out, `model "nope" is not offered by Gemini`)
	assert.Contains(t, out, "Using model m2")
	assert.Contains(t, out, "Attached notes.txt")
	assert.Contains(t, out, "Attached screenshot-1.png")
	assert.Contains(t, out, "Unknown command: /bogus")
	assert.Contains(t, out, "Started conversation conv_")
	assert.Contains(t, out, "Commands:")

	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].Model)
	require.NotNil(t, got[0].Attachment)
	assert.Equal(t, ai.AttachmentText, got[0].Attachment.Type)
	assert.Equal(t, "some notes", got[0].Attachment.Content)
	require.NotNil(t, got[1].Attachment)
	assert.Equal(t, ai.AttachmentImage, got[1].Attachment.Type)

	selected, err := a.chats.SelectedModel(ctx, "gemini")
	require.NoError(t, err)
	assert.Equal(t, "m2", selected)

	convs, err := a.chats.List(ctx)
	require.NoError(t, err)
	assert.Len(t, convs, 2)
	assert.Empty(t, s.Messages())
}

func TestChat_SwitchAndDelete(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.keys.Set(ctx, "gemini", "k"))

	old := chat.NewConversation("gemini", "m1", fixedNow())
	old.Title = "older chat"
	old.Messages = []chat.Message{
		{ID: "1", Role: chat.RoleUser, Content: "first question"},
		{ID: "2", Role: chat.RoleAssistant, Content: "first answer", ModelID: "m1"},
	}
	require.NoError(t, a.chats.Save(ctx, old))

	s := testSession(t, a, &FakeAIService{})
	c := newTestChat(t, a, s, "/switch "+old.ID, "/switch missing", "/delete "+old.ID, "/quit")
	require.NoError(t, c.Run(ctx, ChatInput{}))

	out := buf.String()
	assert.Contains(t, out, "Switched to conversation "+old.ID)
	assert.Contains(t, out, "first answer")
	assert.Contains(t, out, "conversation not found")
	assert.Contains(t, out, "Deleted conversation "+old.ID)
	assert.Empty(t, s.ConversationID())

	convs, err := a.chats.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestChat_ScreenshotErrorsAreTranslated(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	c := newTestChat(t, a, testSession(t, a, &FakeAIService{}), "/screenshot chrome://settings", "/quit")
	c.capture = &FakeScreenshotter{CaptureFunc: func(ctx context.Context, url string) ([]byte, error) {
		return nil, capture.ValidateURL(url)
	}}

	require.NoError(t, c.Run(context.Background(), ChatInput{}))
	assert.Contains(t, buf.String(), "Screenshots cannot be taken on this page")
}

func TestChat_ClipboardWatcherAttaches(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.keys.Set(ctx, "gemini", "k"))

	var got []ai.SendRequest
	svc := &FakeAIService{SendFunc: func(ctx context.Context, req ai.SendRequest) (string, error) {
		got = append(got, req)
		return "ok", nil
	}}

	c := newTestChat(t, a, testSession(t, a, svc), "explain", "/quit")
	reported := make(chan struct{})
	c.watcher = &FakeClipboardWatcher{RunFunc: func(ctx context.Context, found func(*ai.Attachment)) {
		found(&ai.Attachment{Type: ai.AttachmentText, Content: "copied text that is long", Name: "auto-pasted-1.txt"})
		close(reported)
		<-ctx.Done()
	}}
	// Hold input until the watcher has reported.
	c.in = &gatedReader{gate: reported, r: c.in}

	require.NoError(t, c.Run(ctx, ChatInput{WatchClipboard: true}))

	assert.Contains(t, buf.String(), "Clipboard text attached as auto-pasted-1.txt")
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Attachment)
	assert.Equal(t, "copied text that is long", got[0].Attachment.Content)
}
