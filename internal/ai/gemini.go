package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"google.golang.org/genai"
)

type gemini struct {
	apiKey string
	opts   options
}

func newGemini(apiKey string, o options) *gemini {
	return &gemini{apiKey: apiKey, opts: o}
}

// client is built per call because the SDK constructor takes a context.
func (g *gemini) client(ctx context.Context) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     g.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.opts.httpClient,
	}
	if g.opts.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.opts.baseURL + "/"}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

func (g *gemini) Models(ctx context.Context) ([]Model, error) {
	if g.apiKey == "" {
		return []Model{}, nil
	}
	client, err := g.client(ctx)
	if err != nil {
		return []Model{}, nil
	}

	var items []*genai.Model
	page, err := client.Models.List(ctx, &genai.ListModelsConfig{})
	for err == nil {
		items = append(items, page.Items...)
		if page.NextPageToken == "" {
			break
		}
		page, err = page.Next(ctx)
	}
	if err != nil && !errors.Is(err, genai.ErrPageDone) && len(items) == 0 {
		return []Model{}, nil
	}
	return geminiModels(items), nil
}

// geminiModels keeps models that can generate content.
func geminiModels(items []*genai.Model) []Model {
	chat := lo.Filter(items, func(m *genai.Model, _ int) bool {
		return m != nil && lo.Contains(m.SupportedActions, "generateContent")
	})
	return lo.Map(chat, func(m *genai.Model, _ int) Model {
		return Model{ID: strings.TrimPrefix(m.Name, "models/"), Name: m.DisplayName}
	})
}

func (g *gemini) Send(ctx context.Context, req SendRequest) (string, error) {
	if g.apiKey == "" {
		return "", &MissingKeyError{Vendor: "Gemini"}
	}
	client, err := g.client(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model,
		[]*genai.Content{genai.NewContentFromParts(geminiParts(req), genai.RoleUser)}, nil)
	if err != nil {
		return "", geminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 || resp.Candidates[0].Content.Parts[0].Text == "" {
		return noResponse, nil
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// geminiParts puts the inline image first, then the prompt with the system text in front.
func geminiParts(req SendRequest) []*genai.Part {
	var parts []*genai.Part
	if hasImage(req.Attachment) {
		if mediaType, data, ok := parseDataURL(req.Attachment.Content); ok {
			if raw, err := base64.StdEncoding.DecodeString(data); err == nil {
				parts = append(parts, genai.NewPartFromBytes(raw, mediaType))
			}
		}
	}

	text := req.Message
	if req.SystemPrompt != "" {
		text = req.SystemPrompt + "\n\n" + req.Message
	}
	return append(parts, genai.NewPartFromText(withTextAttachment(text, req.Attachment)))
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return newAPIError("Gemini", apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return newAPIError("Gemini", apiErrPtr.Code, apiErrPtr.Message, err)
	}
	return newAPIError("Gemini", 0, "", err)
}
