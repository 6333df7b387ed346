package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestModelsList(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.keys.Set(ctx, "gemini", "k"))
	c := ModelsCmd{session: testSession(t, a, &FakeAIService{}), tr: a.tr}

	require.NoError(t, c.List(ctx, ModelsListInput{}))
	out := buf.String()
	assert.Contains(t, out, "Model One")
	assert.Contains(t, out, "m2")
}

func TestModelsList_JSON(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.keys.Set(ctx, "gemini", "k"))
	require.NoError(t, a.chats.SetSelectedModel(ctx, "gemini", "m2"))
	c := ModelsCmd{session: testSession(t, a, &FakeAIService{}), tr: a.tr}

	require.NoError(t, c.List(ctx, ModelsListInput{Output: "json"}))
	out := buf.String()
	assert.Equal(t, int64(2), gjson.Get(out, "#").Int())
	assert.False(t, gjson.Get(out, "0.selected").Bool())
	assert.True(t, gjson.Get(out, "1.selected").Bool())

	assert.EqualError(t, c.List(ctx, ModelsListInput{Output: "yaml"}), "unsupported --output value: use 'json'")
}

func TestModelsList_NoKey(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	c := ModelsCmd{session: testSession(t, a, &FakeAIService{}), tr: a.tr}

	require.NoError(t, c.List(context.Background(), ModelsListInput{}))
	assert.Contains(t, buf.String(), "multiai keys set gemini")
}

func TestModelsUse(t *testing.T) {
	buf := captureOutput(t)
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.keys.Set(ctx, "gemini", "k"))
	c := ModelsCmd{session: testSession(t, a, &FakeAIService{}), tr: a.tr}

	require.NoError(t, c.Use(ctx, ModelsUseInput{ID: "m2"}))
	assert.Contains(t, buf.String(), "Using model m2")
	saved, err := a.chats.SelectedModel(ctx, "gemini")
	require.NoError(t, err)
	assert.Equal(t, "m2", saved)

	err = c.Use(ctx, ModelsUseInput{ID: "gpt-9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `model "gpt-9" is not offered by gemini`)
}
