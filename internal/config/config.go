// Package config loads and saves the user's settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/multiai/cli/internal/ai"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	// DataDirEnv overrides the data directory.
	DataDirEnv = "MULTIAI_DATA_DIR"

	// FileName is the settings file inside the data directory.
	FileName = "config.yaml"

	DefaultProvider = ai.ProviderGemini
	DefaultLanguage = "en"
)

// Keys accepted by Get and Set.
const (
	KeyProvider     = "provider"
	KeyLanguage     = "language"
	KeyTheme        = "theme"
	KeySystemPrompt = "system_prompt"
)

// Keys lists the settable keys in display order.
var Keys = []string{KeyProvider, KeyLanguage, KeyTheme, KeySystemPrompt}

// Config is the persisted settings.
type Config struct {
	Provider        string              `yaml:"provider"`
	Language        string              `yaml:"language"`
	Theme           string              `yaml:"theme,omitempty"`
	SystemPrompt    string              `yaml:"system_prompt,omitempty"`
	CustomProviders []ai.CustomProvider `yaml:"custom_providers,omitempty"`

	path string
}

// DataDir returns MULTIAI_DATA_DIR, or multiai under the user config directory.
func DataDir() (string, error) {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(base, "multiai"), nil
}

// Load reads config.yaml from dataDir. A missing file yields defaults.
func Load(dataDir string) (*Config, error) {
	cfg := &Config{
		Provider: DefaultProvider,
		Language: DefaultLanguage,
		path:     filepath.Join(dataDir, FileName),
	}
	b, err := os.ReadFile(cfg.path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cfg.path, err)
	}
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	return cfg, nil
}

// Path is the file the config is saved to.
func (c *Config) Path() string {
	return c.path
}

// Save writes the config back to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(c.path, b, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get returns the value of a settable key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case KeyProvider:
		return c.Provider, nil
	case KeyLanguage:
		return c.Language, nil
	case KeyTheme:
		return c.Theme, nil
	case KeySystemPrompt:
		return c.SystemPrompt, nil
	}
	return "", fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
}

// Set validates and assigns a settable key. It does not save.
func (c *Config) Set(key, value string) error {
	switch key {
	case KeyProvider:
		if !ai.IsBuiltin(value) && !lo.ContainsBy(c.CustomProviders, func(p ai.CustomProvider) bool { return p.ID == value }) {
			return &ai.ProviderNotFoundError{ID: value}
		}
		c.Provider = value
	case KeyLanguage:
		if value != "en" && value != "tr" {
			return fmt.Errorf("unsupported language %q (valid: en, tr)", value)
		}
		c.Language = value
	case KeyTheme:
		if value != "" && value != "light" && value != "dark" && value != "auto" {
			return fmt.Errorf("unsupported theme %q (valid: light, dark, auto)", value)
		}
		if value == "auto" {
			value = ""
		}
		c.Theme = value
	case KeySystemPrompt:
		c.SystemPrompt = value
	default:
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

var whitespace = regexp.MustCompile(`\s+`)

// CustomProviderID derives the id of a custom provider named name.
func CustomProviderID(name string, now time.Time) string {
	return fmt.Sprintf("custom_%s_%d", whitespace.ReplaceAllString(strings.ToLower(name), "_"), now.UnixMilli())
}

// ParseModels splits a comma-separated model list, dropping blanks.
func ParseModels(csv string) []ai.Model {
	ids := lo.Filter(lo.Map(strings.Split(csv, ","), func(s string, _ int) string { return strings.TrimSpace(s) }),
		func(s string, _ int) bool { return s != "" })
	return lo.Map(ids, func(id string, _ int) ai.Model { return ai.Model{ID: id, Name: id} })
}

// AddCustomProvider registers an OpenAI-compatible endpoint. It does not save.
func (c *Config) AddCustomProvider(name, baseURL, models string, now time.Time) (ai.CustomProvider, error) {
	name = strings.TrimSpace(name)
	baseURL = strings.TrimSpace(baseURL)
	if name == "" || baseURL == "" {
		return ai.CustomProvider{}, errors.New("name and base URL are required")
	}
	p := ai.CustomProvider{
		ID:      CustomProviderID(name, now),
		Name:    name,
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Models:  ParseModels(models),
	}
	c.CustomProviders = append(c.CustomProviders, p)
	return p, nil
}

// RemoveCustomProvider drops the provider with id and reports whether it existed. When it
// was the selected provider the default is selected again.
func (c *Config) RemoveCustomProvider(id string) bool {
	before := len(c.CustomProviders)
	c.CustomProviders = lo.Filter(c.CustomProviders, func(p ai.CustomProvider, _ int) bool { return p.ID != id })
	if c.Provider == id {
		c.Provider = DefaultProvider
	}
	return len(c.CustomProviders) != before
}
