package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const claudeMaxTokens = 4096

var claudeModels = []Model{
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4"},
	{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet"},
	{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus"},
	{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku"},
}

type claude struct {
	apiKey string
	client anthropic.Client
}

func newClaude(apiKey string, o options) *claude {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(o.baseURL, "/")+"/"))
	}
	if o.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(o.httpClient))
	}
	return &claude{apiKey: apiKey, client: anthropic.NewClient(opts...)}
}

func (c *claude) Models(context.Context) ([]Model, error) {
	return append([]Model(nil), claudeModels...), nil
}

func (c *claude) Send(ctx context.Context, req SendRequest) (string, error) {
	if c.apiKey == "" {
		return "", &MissingKeyError{Vendor: "Claude"}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: claudeMaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(claudeContent(req)...)},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			return "", newAPIError("Claude", apierr.StatusCode, "", err)
		}
		return "", newAPIError("Claude", 0, "", err)
	}
	if len(msg.Content) == 0 || msg.Content[0].Text == "" {
		return noResponse, nil
	}
	return msg.Content[0].Text, nil
}

// claudeContent builds the user blocks. An image that is not a data URL is dropped.
func claudeContent(req SendRequest) []anthropic.ContentBlockParamUnion {
	if hasImage(req.Attachment) {
		mediaType, data, ok := parseDataURL(req.Attachment.Content)
		if !ok {
			return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.Message)}
		}
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewImageBlockBase64(mediaType, data),
			anthropic.NewTextBlock(imagePrompt(req.Message)),
		}
	}
	return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(withTextAttachment(req.Message, req.Attachment))}
}
