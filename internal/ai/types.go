// Package ai provides a single adapter contract over the chat-completion APIs of
// several model vendors.
package ai

import "context"

// AttachmentType tells an adapter how to forward an attachment.
type AttachmentType string

const (
	// AttachmentImage carries a base64 data URL (data:<mime>;base64,<data>).
	AttachmentImage AttachmentType = "image"
	// AttachmentText carries raw text, inlined into the prompt.
	AttachmentText AttachmentType = "text"
)

// Attachment is a single file sent alongside a message.
type Attachment struct {
	Type     AttachmentType `json:"type"`
	Content  string         `json:"content"`
	Name     string         `json:"name"`
	MimeType string         `json:"mimeType,omitempty"`
}

// Model is a model offered by a provider.
type Model struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// SendRequest is one user turn.
type SendRequest struct {
	Message      string
	Model        string
	SystemPrompt string
	Attachment   *Attachment
}

// Service is implemented by every provider adapter.
type Service interface {
	// Models lists the models a user can pick for this provider.
	Models(ctx context.Context) ([]Model, error)

	// Send sends a single message and returns the reply text.
	Send(ctx context.Context, req SendRequest) (string, error)
}

// Streamer is implemented by services that can deliver a reply incrementally.
type Streamer interface {
	Stream(ctx context.Context, req SendRequest, onChunk func(string)) error
}

// CustomProvider is a user-defined OpenAI-compatible endpoint.
type CustomProvider struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	BaseURL string  `json:"baseUrl" yaml:"base_url"`
	Models  []Model `json:"models,omitempty" yaml:"models,omitempty"`
}

const (
	defaultSystemPrompt = "You are a helpful assistant."
	defaultImagePrompt  = "What do you see in this image?"
	noResponse          = "No response"
)
