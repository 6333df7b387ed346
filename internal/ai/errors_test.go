package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type rawErr struct{ raw string }

func (e *rawErr) Error() string   { return "request failed" }
func (e *rawErr) RawJSON() string { return e.raw }

func TestNewAPIErrorMessageSources(t *testing.T) {
	tests := []struct {
		name    string
		message string
		err     error
		want    string
	}{
		{"explicit message wins", "quota exceeded", errors.New("x"), "quota exceeded"},
		{"raw json error.message", "", &rawErr{raw: `{"error":{"message":"bad key"}}`}, "bad key"},
		{"raw json message", "", &rawErr{raw: `{"message":"slow down"}`}, "slow down"},
		{"json in error string", "", errors.New(`POST "https://x/v1": 400 Bad Request {"error":{"message":"nope"}}`), "nope"},
		{"generic fallback", "", errors.New("connection refused"), "Mistral API Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newAPIError("Mistral", 0, tt.message, tt.err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestNewAPIErrorKeepsContextErrors(t *testing.T) {
	err := newAPIError("OpenAI", 0, "", context.Canceled)
	assert.Same(t, context.Canceled, err)
}

func TestParseDataURL(t *testing.T) {
	mediaType, data, ok := parseDataURL("data:image/webp;base64,UklGR")
	assert.True(t, ok)
	assert.Equal(t, "image/webp", mediaType)
	assert.Equal(t, "UklGR", data)

	_, _, ok = parseDataURL("https://example.com/a.png")
	assert.False(t, ok)
}

func TestRegistryHelpers(t *testing.T) {
	customs := []CustomProvider{{ID: "custom_ollama_1", Name: "Ollama"}}
	assert.True(t, IsBuiltin("groq"))
	assert.False(t, IsBuiltin("custom_ollama_1"))
	assert.Equal(t, "DeepSeek", DisplayName("deepseek", customs))
	assert.Equal(t, "Ollama", DisplayName("custom_ollama_1", customs))
	assert.Equal(t, "other", DisplayName("other", customs))
	assert.Equal(t, "ANTHROPIC_API_KEY", EnvVar("claude"))
	assert.Equal(t, "MULTIAI_CUSTOM_OLLAMA_1_API_KEY", EnvVar("custom_ollama_1"))
	assert.Len(t, Providers(), 7)
}
