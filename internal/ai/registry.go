package ai

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
)

// ProviderInfo describes a built-in provider.
type ProviderInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	KeyURL  string `json:"keyUrl"`
	EnvVar  string `json:"envVar"`
	Builtin bool   `json:"builtin"`
}

const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderClaude     = "claude"
	ProviderPerplexity = "perplexity"
	ProviderGroq       = "groq"
	ProviderDeepSeek   = "deepseek"
	ProviderMistral    = "mistral"
)

var builtins = []ProviderInfo{
	{ID: ProviderGemini, Name: "Gemini", KeyURL: "https://aistudio.google.com/app/apikey", EnvVar: "GEMINI_API_KEY", Builtin: true},
	{ID: ProviderOpenAI, Name: "OpenAI", KeyURL: "https://platform.openai.com/api-keys", EnvVar: "OPENAI_API_KEY", Builtin: true},
	{ID: ProviderClaude, Name: "Claude", KeyURL: "https://console.anthropic.com/settings/keys", EnvVar: "ANTHROPIC_API_KEY", Builtin: true},
	{ID: ProviderPerplexity, Name: "Perplexity", KeyURL: "https://www.perplexity.ai/settings/api", EnvVar: "PERPLEXITY_API_KEY", Builtin: true},
	{ID: ProviderGroq, Name: "Groq", KeyURL: "https://console.groq.com/keys", EnvVar: "GROQ_API_KEY", Builtin: true},
	{ID: ProviderDeepSeek, Name: "DeepSeek", KeyURL: "https://platform.deepseek.com/api_keys", EnvVar: "DEEPSEEK_API_KEY", Builtin: true},
	{ID: ProviderMistral, Name: "Mistral", KeyURL: "https://console.mistral.ai/api-keys", EnvVar: "MISTRAL_API_KEY", Builtin: true},
}

// Providers returns the built-in providers in display order.
func Providers() []ProviderInfo {
	out := make([]ProviderInfo, len(builtins))
	copy(out, builtins)
	return out
}

// Lookup returns the built-in provider with the given id.
func Lookup(id string) (ProviderInfo, bool) {
	return lo.Find(builtins, func(p ProviderInfo) bool { return p.ID == id })
}

// IsBuiltin reports whether id names a built-in provider.
func IsBuiltin(id string) bool {
	_, ok := Lookup(id)
	return ok
}

// FindCustom returns the configured custom provider with the given id.
func FindCustom(id string, customs []CustomProvider) (CustomProvider, bool) {
	return lo.Find(customs, func(c CustomProvider) bool { return c.ID == id })
}

// DisplayName returns a human name for a provider id, falling back to the id itself.
func DisplayName(id string, customs []CustomProvider) string {
	if p, ok := Lookup(id); ok {
		return p.Name
	}
	if c, ok := FindCustom(id, customs); ok {
		return c.Name
	}
	return id
}

// EnvVar returns the environment variable consulted for a provider's key.
func EnvVar(id string) string {
	if p, ok := Lookup(id); ok {
		return p.EnvVar
	}
	return "MULTIAI_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(id)) + "_API_KEY"
}

type options struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes an adapter built by New.
type Option func(*options)

// WithBaseURL overrides the vendor endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client the vendor SDK uses.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New returns the adapter for provider. Ids that are not built in are resolved
// against customs.
func New(provider, apiKey string, customs []CustomProvider, opts ...Option) (Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch provider {
	case ProviderGemini:
		return newGemini(apiKey, o), nil
	case ProviderClaude:
		return newClaude(apiKey, o), nil
	case ProviderOpenAI, ProviderPerplexity, ProviderGroq, ProviderDeepSeek, ProviderMistral:
		return newCompatible(vendors[provider], apiKey, o), nil
	}

	c, ok := FindCustom(provider, customs)
	if !ok {
		return nil, &ProviderNotFoundError{ID: provider}
	}
	v := vendor{
		name:         "",
		errorName:    "Custom Provider",
		baseURL:      strings.TrimRight(c.BaseURL, "/"),
		images:       true,
		staticModels: c.Models,
		listModels:   listCustomModels,
	}
	return newCompatible(v, apiKey, o), nil
}
