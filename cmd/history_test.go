package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/multiai/cli/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestHistory(t *testing.T, a *app) HistoryCmd {
	t.Helper()
	return HistoryCmd{store: a.chats, tr: a.tr, render: testRenderer(t), now: fixedNow}
}

func seedConversation(t *testing.T, a *app, title string, updated int64) chat.Conversation {
	t.Helper()
	c := chat.NewConversation("gemini", "m1", time.UnixMilli(updated))
	c.ID = "conv_" + title
	c.Title = title
	c.Messages = []chat.Message{
		{ID: "1", Role: chat.RoleUser, Content: "question about " + title},
		{ID: "2", Role: chat.RoleAssistant, Content: "answer about " + title, ModelID: "m1"},
	}
	require.NoError(t, a.chats.Save(context.Background(), c))
	return c
}

func TestHistoryList(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	c := newTestHistory(t, a)
	ctx := context.Background()

	require.NoError(t, c.List(ctx, HistoryListInput{}))
	assert.Contains(t, buf.String(), "No conversations yet")

	seedConversation(t, a, "older", 1000)
	seedConversation(t, a, "newer", 2000)

	jsonBuf := captureOutput(t)
	require.NoError(t, c.List(ctx, HistoryListInput{Output: "json"}))
	out := jsonBuf.String()
	assert.Equal(t, "conv_newer", gjson.Get(out, "0.id").String())
	assert.Equal(t, "conv_older", gjson.Get(out, "1.id").String())

	tableBuf := captureOutput(t)
	require.NoError(t, c.List(ctx, HistoryListInput{}))
	assert.Contains(t, tableBuf.String(), "conv_older")
	assert.Contains(t, tableBuf.String(), "MESSAGES")
}

func TestHistoryShowUseDelete(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	c := newTestHistory(t, a)
	ctx := context.Background()
	conv := seedConversation(t, a, "topic", 1000)

	assert.ErrorContains(t, c.Show(ctx, HistoryShowInput{}), "no active conversation")

	require.NoError(t, c.Use(ctx, HistoryUseInput{ID: conv.ID}))
	active, err := a.chats.ActiveID(ctx)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, active)

	require.NoError(t, c.Show(ctx, HistoryShowInput{}))
	out := buf.String()
	assert.Contains(t, out, "question about topic")
	assert.Contains(t, out, "answer about topic")

	assert.ErrorIs(t, c.Use(ctx, HistoryUseInput{ID: "conv_missing"}), chat.ErrConversationNotFound)
	assert.ErrorIs(t, c.Delete(ctx, HistoryDeleteInput{ID: "conv_missing"}), chat.ErrConversationNotFound)

	require.NoError(t, c.Delete(ctx, HistoryDeleteInput{ID: conv.ID}))
	active, err = a.chats.ActiveID(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	convs, err := a.chats.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestHistoryDeleteAll(t *testing.T) {
	captureOutput(t)
	a := newTestApp(t)
	c := newTestHistory(t, a)
	ctx := context.Background()
	seedConversation(t, a, "a", 1)
	seedConversation(t, a, "b", 2)

	assert.Error(t, c.Delete(ctx, HistoryDeleteInput{}))
	require.NoError(t, c.Delete(ctx, HistoryDeleteInput{All: true}))
	convs, err := a.chats.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestHistoryNew(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	c := newTestHistory(t, a)
	ctx := context.Background()
	require.NoError(t, a.chats.SetSelectedModel(ctx, "claude", "claude-3-opus"))

	require.NoError(t, c.New(ctx, HistoryNewInput{Provider: "claude"}))
	assert.Contains(t, buf.String(), "Started conversation conv_1700000000000_")

	convs, err := a.chats.List(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "claude-3-opus", convs[0].ModelID)
	assert.Equal(t, chat.DefaultTitle, convs[0].Title)
	active, _ := a.chats.ActiveID(ctx)
	assert.Equal(t, convs[0].ID, active)
}

func TestHistoryExportImport(t *testing.T) {
	captureOutput(t)
	a := newTestApp(t)
	c := newTestHistory(t, a)
	ctx := context.Background()
	seedConversation(t, a, "kept", 1000)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, c.Export(ctx, HistoryExportInput{Path: path}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "conv_kept", gjson.GetBytes(raw, "0.id").String())
	assert.Equal(t, "m1", gjson.GetBytes(raw, "0.modelId").String())

	incoming := []chat.Conversation{
		{ID: "conv_kept", Title: "kept (edited)", UpdatedAt: 3000, Messages: []chat.Message{
			{ID: "9", Role: chat.RoleUser, Content: "img", AttachmentPreview: "data:image/png;base64,AAAA"},
		}},
		{ID: "conv_new", Title: "new", UpdatedAt: 2000},
		{Title: "no id"},
	}
	b, err := json.Marshal(incoming)
	require.NoError(t, err)
	importPath := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(importPath, b, 0o600))

	require.NoError(t, c.Import(ctx, HistoryImportInput{Path: importPath}))
	convs, err := a.chats.List(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "kept (edited)", convs[0].Title)
	assert.Empty(t, convs[0].Messages[0].AttachmentPreview)
	assert.Equal(t, "conv_new", convs[1].ID)
	assert.NotNil(t, convs[1].Messages)

	require.NoError(t, os.WriteFile(importPath, []byte(`[{"id":"conv_only","updatedAt":1}]`), 0o600))
	require.NoError(t, c.Import(ctx, HistoryImportInput{Path: importPath, Replace: true}))
	convs, err = a.chats.List(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "conv_only", convs[0].ID)

	require.NoError(t, os.WriteFile(importPath, []byte(`{not json`), 0o600))
	assert.ErrorContains(t, c.Import(ctx, HistoryImportInput{Path: importPath}), "failed to parse conversations")
}

func TestHistoryExport_Stdout(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	c := newTestHistory(t, a)

	require.NoError(t, c.Export(context.Background(), HistoryExportInput{}))
	assert.Equal(t, "[]\n", buf.String())
}

func TestHistoryCleanup(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	c := newTestHistory(t, a)
	ctx := context.Background()

	require.NoError(t, a.db.SetRaw(ctx, chat.ConversationsKey, "{broken"))
	require.NoError(t, c.Cleanup(ctx, HistoryCleanupInput{Output: "json"}))
	assert.True(t, gjson.Get(buf.String(), "reset").Bool())

	again := captureOutput(t)
	require.NoError(t, c.Cleanup(ctx, HistoryCleanupInput{}))
	assert.Contains(t, again.String(), "Nothing to clean up")
}
