package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/config"
	"github.com/multiai/cli/internal/i18n"
	"github.com/multiai/cli/internal/keys"
	"github.com/multiai/cli/internal/logging"
	"github.com/multiai/cli/pkg/table"
	"github.com/multiai/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// KeyStore reads and writes provider API keys.
type KeyStore interface {
	Lookup(ctx context.Context, provider string) (string, keys.Source, error)
	Set(ctx context.Context, provider, key string) error
	Delete(ctx context.Context, provider string) error
}

// ProvidersCmd manages built-in and custom providers.
type ProvidersCmd struct {
	cfg  *config.Config
	keys KeyStore
	tr   i18n.Translator
	now  func() time.Time
}

type ProvidersListInput struct {
	Output string
}

type ProvidersAddInput struct {
	Name    string
	BaseURL string
	Models  string
	APIKey  string
	Use     bool
}

type ProvidersRemoveInput struct {
	ID string
}

type ProvidersUseInput struct {
	ID string
}

type providerEntry struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Builtin  bool       `json:"builtin"`
	Selected bool       `json:"selected"`
	Key      string     `json:"key"`
	EnvVar   string     `json:"envVar"`
	BaseURL  string     `json:"baseUrl,omitempty"`
	Models   []ai.Model `json:"models,omitempty"`
}

func (c ProvidersCmd) entries(ctx context.Context) []providerEntry {
	var out []providerEntry
	add := func(e providerEntry) {
		_, src, err := c.keys.Lookup(ctx, e.ID)
		if err != nil {
			logging.Debug("key lookup failed", "provider", e.ID, "error", err)
		}
		e.Key = string(src)
		e.EnvVar = ai.EnvVar(e.ID)
		e.Selected = e.ID == c.cfg.Provider
		out = append(out, e)
	}
	for _, p := range ai.Providers() {
		add(providerEntry{ID: p.ID, Name: p.Name, Builtin: true})
	}
	for _, p := range c.cfg.CustomProviders {
		add(providerEntry{ID: p.ID, Name: p.Name, BaseURL: p.BaseURL, Models: p.Models})
	}
	return out
}

func (c ProvidersCmd) List(ctx context.Context, in ProvidersListInput) error {
	if err := checkOutput(in.Output); err != nil {
		return err
	}
	entries := c.entries(ctx)
	if in.Output == "json" {
		return util.WritePrettyJSON(stdout, entries)
	}

	rows := pterm.TableData{{"", "ID", "NAME", "TYPE", "KEY", "BASE URL"}}
	for _, e := range entries {
		mark, kind := "", c.tr.T("builtInProviders")
		if e.Selected {
			mark = "*"
		}
		if !e.Builtin {
			kind = c.tr.T("customProviders")
		}
		rows = append(rows, []string{mark, e.ID, e.Name, kind, util.OrDash(e.Key), util.OrDash(e.BaseURL)})
	}
	table.PrintTableNoPad(rows, true)
	return nil
}

func (c ProvidersCmd) Add(ctx context.Context, in ProvidersAddInput) error {
	p, err := c.cfg.AddCustomProvider(in.Name, in.BaseURL, in.Models, c.now())
	if err != nil {
		return err
	}
	if in.Use {
		c.cfg.Provider = p.ID
	}
	if err := c.cfg.Save(); err != nil {
		return err
	}
	if in.APIKey != "" {
		if err := c.keys.Set(ctx, p.ID, in.APIKey); err != nil {
			return err
		}
	}
	pterm.Success.Println(c.tr.T("providerAdded", "name", p.Name, "id", p.ID))
	if in.APIKey == "" {
		pterm.Info.Printf("Add its key with: multiai keys set %s (or export %s)\n", p.ID, ai.EnvVar(p.ID))
	}
	return nil
}

func (c ProvidersCmd) Remove(ctx context.Context, in ProvidersRemoveInput) error {
	if ai.IsBuiltin(in.ID) {
		return fmt.Errorf("%s is a built-in provider and cannot be removed", in.ID)
	}
	if !c.cfg.RemoveCustomProvider(in.ID) {
		return &ai.ProviderNotFoundError{ID: in.ID}
	}
	if err := c.cfg.Save(); err != nil {
		return err
	}
	if err := c.keys.Delete(ctx, in.ID); err != nil {
		pterm.Warning.Printf("failed to remove stored key: %v\n", err)
	}
	pterm.Success.Println(c.tr.T("providerRemoved", "id", in.ID))
	return nil
}

func (c ProvidersCmd) Use(ctx context.Context, in ProvidersUseInput) error {
	if err := c.cfg.Set(config.KeyProvider, in.ID); err != nil {
		var nf *ai.ProviderNotFoundError
		if errors.As(err, &nf) {
			return fmt.Errorf("%w; see 'multiai providers list'", err)
		}
		return err
	}
	if err := c.cfg.Save(); err != nil {
		return err
	}
	pterm.Success.Printf("Using %s\n", ai.DisplayName(in.ID, c.cfg.CustomProviders))
	return nil
}

var providersCmd = &cobra.Command{
	Use:     "providers",
	Aliases: []string{"provider"},
	Short:   "Manage providers",
	Long:    "Commands for listing providers, selecting one and adding OpenAI-compatible endpoints.",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and custom providers",
	Args:  cobra.NoArgs,
	RunE:  runProvidersList,
}

var providersAddCmd = &cobra.Command{
	Use:   "add <name> <base-url>",
	Short: "Add an OpenAI-compatible provider",
	Long: `Add a custom provider speaking the OpenAI chat completions API, such as a
local Ollama or LM Studio server.

If --models is omitted the model list is fetched from <base-url>/models.`,
	Example: `  multiai providers add "My Local LLM" http://localhost:11434/v1 --models llama3,mistral --use`,
	Args:    cobra.ExactArgs(2),
	RunE:    runProvidersAdd,
}

var providersRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a custom provider and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE:  runProvidersRemove,
}

var providersUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Select the provider used by default",
	Args:  cobra.ExactArgs(1),
	RunE:  runProvidersUse,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersAddCmd)
	providersCmd.AddCommand(providersRemoveCmd)
	providersCmd.AddCommand(providersUseCmd)

	providersListCmd.Flags().StringP("output", "o", "", "Output format (json)")

	providersAddCmd.Flags().String("models", "", "Comma-separated model IDs")
	providersAddCmd.Flags().String("api-key", "", "API key to store for the provider")
	providersAddCmd.Flags().Bool("use", false, "Select the provider after adding it")
}

func newProvidersCmd(cmd *cobra.Command) (ProvidersCmd, *app, error) {
	a, err := openApp(cmd)
	if err != nil {
		return ProvidersCmd{}, nil, err
	}
	return ProvidersCmd{cfg: a.cfg, keys: a.keys, tr: a.tr, now: time.Now}, a, nil
}

func runProvidersList(cmd *cobra.Command, args []string) error {
	c, a, err := newProvidersCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	output, _ := cmd.Flags().GetString("output")
	return c.List(cmd.Context(), ProvidersListInput{Output: output})
}

func runProvidersAdd(cmd *cobra.Command, args []string) error {
	c, a, err := newProvidersCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	in := ProvidersAddInput{Name: args[0], BaseURL: args[1]}
	in.Models, _ = cmd.Flags().GetString("models")
	in.APIKey, _ = cmd.Flags().GetString("api-key")
	in.Use, _ = cmd.Flags().GetBool("use")
	return c.Add(cmd.Context(), in)
}

func runProvidersRemove(cmd *cobra.Command, args []string) error {
	c, a, err := newProvidersCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.Remove(cmd.Context(), ProvidersRemoveInput{ID: args[0]})
}

func runProvidersUse(cmd *cobra.Command, args []string) error {
	c, a, err := newProvidersCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.Use(cmd.Context(), ProvidersUseInput{ID: args[0]})
}
