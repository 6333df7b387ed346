package ai

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/samber/lo"
)

// vendor configures the OpenAI-compatible adapter for one API.
type vendor struct {
	// name prefixes the missing key error. Empty for custom providers.
	name string
	// errorName prefixes the generic API error.
	errorName    string
	baseURL      string
	images       bool
	staticModels []Model
	listModels   func(ctx context.Context, c *compatible) ([]Model, error)
}

var vendors = map[string]vendor{
	ProviderOpenAI: {
		name:       "OpenAI",
		errorName:  "OpenAI",
		baseURL:    "https://api.openai.com/v1",
		images:     true,
		listModels: listOpenAIModels,
	},
	ProviderPerplexity: {
		name:      "Perplexity",
		errorName: "Perplexity",
		baseURL:   "https://api.perplexity.ai",
		images:    true,
		staticModels: []Model{
			{ID: "sonar-pro", Name: "Sonar Pro"},
			{ID: "sonar", Name: "Sonar"},
			{ID: "sonar-reasoning-pro", Name: "Sonar Reasoning Pro"},
			{ID: "sonar-reasoning", Name: "Sonar Reasoning"},
		},
	},
	ProviderGroq: {
		name:      "Groq",
		errorName: "Groq",
		baseURL:   "https://api.groq.com/openai/v1",
		images:    true,
		staticModels: []Model{
			{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B"},
			{ID: "llama-3.1-8b-instant", Name: "Llama 3.1 8B"},
			{ID: "mixtral-8x7b-32768", Name: "Mixtral 8x7B"},
			{ID: "gemma2-9b-it", Name: "Gemma 2 9B"},
		},
		listModels: listGroqModels,
	},
	ProviderDeepSeek: {
		name:      "DeepSeek",
		errorName: "DeepSeek",
		baseURL:   "https://api.deepseek.com",
		staticModels: []Model{
			{ID: "deepseek-chat", Name: "DeepSeek V3"},
			{ID: "deepseek-reasoner", Name: "DeepSeek R1"},
		},
	},
	ProviderMistral: {
		name:      "Mistral",
		errorName: "Mistral",
		baseURL:   "https://api.mistral.ai/v1",
		images:    true,
		staticModels: []Model{
			{ID: "mistral-large-latest", Name: "Mistral Large"},
			{ID: "mistral-medium-latest", Name: "Mistral Medium"},
			{ID: "mistral-small-latest", Name: "Mistral Small"},
			{ID: "codestral-latest", Name: "Codestral"},
		},
	},
}

// compatible talks to any API that speaks the OpenAI chat completions protocol.
type compatible struct {
	vendor vendor
	apiKey string
	client openai.Client
}

func newCompatible(v vendor, apiKey string, o options) *compatible {
	base := v.baseURL
	if o.baseURL != "" {
		base = o.baseURL
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimRight(base, "/") + "/"),
		option.WithMaxRetries(0),
	}
	if o.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(o.httpClient))
	}
	return &compatible{vendor: v, apiKey: apiKey, client: openai.NewClient(opts...)}
}

func (c *compatible) Models(ctx context.Context) ([]Model, error) {
	if c.vendor.listModels == nil {
		return append([]Model(nil), c.vendor.staticModels...), nil
	}
	return c.vendor.listModels(ctx, c)
}

func (c *compatible) Send(ctx context.Context, req SendRequest) (string, error) {
	if c.apiKey == "" {
		return "", &MissingKeyError{Vendor: c.vendor.name}
	}

	system := req.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			c.userMessage(req),
		},
	})
	if err != nil {
		return "", c.apiError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return noResponse, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *compatible) userMessage(req SendRequest) openai.ChatCompletionMessageParamUnion {
	if c.vendor.images && hasImage(req.Attachment) {
		return openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: req.Attachment.Content}),
			openai.TextContentPart(imagePrompt(req.Message)),
		})
	}
	return openai.UserMessage(withTextAttachment(req.Message, req.Attachment))
}

func (c *compatible) apiError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return newAPIError(c.vendor.errorName, apierr.StatusCode, apierr.Message, err)
	}
	return newAPIError(c.vendor.errorName, 0, "", err)
}

func (c *compatible) listIDs(ctx context.Context) ([]string, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, c.apiError(err)
	}
	return lo.Map(page.Data, func(m openai.Model, _ int) string { return m.ID }), nil
}

// listOpenAIModels keeps chat-capable ids, newest-looking first. Failures give an empty list.
func listOpenAIModels(ctx context.Context, c *compatible) ([]Model, error) {
	if c.apiKey == "" {
		return []Model{}, nil
	}
	ids, err := c.listIDs(ctx)
	if err != nil {
		return []Model{}, nil
	}
	ids = lo.Filter(ids, func(id string, _ int) bool {
		return strings.Contains(id, "gpt") || strings.Contains(id, "o1") ||
			strings.Contains(id, "o3") || strings.Contains(id, "o4")
	})
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return idsToModels(ids), nil
}

// listGroqModels falls back to the static list only when the API is unreachable.
func listGroqModels(ctx context.Context, c *compatible) ([]Model, error) {
	if c.apiKey == "" {
		return []Model{}, nil
	}
	ids, err := c.listIDs(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
			return []Model{}, nil
		}
		return append([]Model(nil), c.vendor.staticModels...), nil
	}
	sort.Strings(ids)
	return idsToModels(ids), nil
}

func listCustomModels(ctx context.Context, c *compatible) ([]Model, error) {
	if len(c.vendor.staticModels) > 0 {
		return append([]Model(nil), c.vendor.staticModels...), nil
	}
	if c.apiKey == "" {
		return []Model{}, nil
	}
	ids, err := c.listIDs(ctx)
	if err != nil {
		return []Model{}, nil
	}
	return idsToModels(ids), nil
}

func idsToModels(ids []string) []Model {
	return lo.Map(ids, func(id string, _ int) Model { return Model{ID: id, Name: id} })
}
