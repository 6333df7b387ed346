package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/i18n"
	"github.com/multiai/cli/pkg/table"
	"github.com/multiai/cli/pkg/util"
	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// KeysCmd manages provider API keys.
type KeysCmd struct {
	keys    KeyStore
	customs []ai.CustomProvider
	tr      i18n.Translator
	open    func(url string) error
}

type KeysSetInput struct {
	Provider string
	Key      string
}

type KeysDeleteInput struct {
	Provider string
}

type KeysListInput struct {
	Output string
}

type KeysOpenInput struct {
	Provider string
}

type keyEntry struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Source   string `json:"source"`
	EnvVar   string `json:"envVar"`
}

func (c KeysCmd) known(id string) error {
	if ai.IsBuiltin(id) {
		return nil
	}
	if _, ok := ai.FindCustom(id, c.customs); ok {
		return nil
	}
	return &ai.ProviderNotFoundError{ID: id}
}

func (c KeysCmd) Set(ctx context.Context, in KeysSetInput) error {
	if err := c.known(in.Provider); err != nil {
		return err
	}
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return fmt.Errorf("no key provided")
	}
	if err := c.keys.Set(ctx, in.Provider, key); err != nil {
		return err
	}
	pterm.Success.Println(c.tr.T("keySaved", "provider", ai.DisplayName(in.Provider, c.customs)))
	return nil
}

func (c KeysCmd) Delete(ctx context.Context, in KeysDeleteInput) error {
	if err := c.known(in.Provider); err != nil {
		return err
	}
	if err := c.keys.Delete(ctx, in.Provider); err != nil {
		return err
	}
	pterm.Success.Println(c.tr.T("keyDeleted", "provider", ai.DisplayName(in.Provider, c.customs)))
	return nil
}

func (c KeysCmd) List(ctx context.Context, in KeysListInput) error {
	if err := checkOutput(in.Output); err != nil {
		return err
	}
	ids := make([]string, 0, len(c.customs)+8)
	for _, p := range ai.Providers() {
		ids = append(ids, p.ID)
	}
	for _, p := range c.customs {
		ids = append(ids, p.ID)
	}

	entries := make([]keyEntry, 0, len(ids))
	for _, id := range ids {
		_, src, err := c.keys.Lookup(ctx, id)
		if err != nil {
			return err
		}
		entries = append(entries, keyEntry{
			Provider: id,
			Name:     ai.DisplayName(id, c.customs),
			Source:   string(src),
			EnvVar:   ai.EnvVar(id),
		})
	}

	if in.Output == "json" {
		return util.WritePrettyJSON(stdout, entries)
	}
	rows := pterm.TableData{{"", "PROVIDER", "NAME", "SOURCE", "ENV VAR"}}
	for _, e := range entries {
		_, rgb := getStatusDisplay(keyStatus(e.Source != ""))
		rows = append(rows, []string{coloredDot(rgb), e.Provider, e.Name, util.OrDash(e.Source), e.EnvVar})
	}
	table.PrintTableNoPad(rows, true)
	return nil
}

func (c KeysCmd) Open(ctx context.Context, in KeysOpenInput) error {
	info, ok := ai.Lookup(in.Provider)
	if !ok || info.KeyURL == "" {
		return fmt.Errorf("no key page is known for %s", in.Provider)
	}
	pterm.Info.Printf("Opening %s\n", info.KeyURL)
	if err := c.open(info.KeyURL); err != nil {
		pterm.Warning.Printf("Could not open a browser: %v\n", err)
	}
	return nil
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage provider API keys",
	Long: `Commands for storing provider API keys in the OS keychain.

Keys can also be supplied through environment variables (see 'multiai keys list'),
which are used whenever the keychain has no entry.`,
}

var keysSetCmd = &cobra.Command{
	Use:   "set <provider> [key]",
	Short: "Store the API key for a provider",
	Long:  "Store the API key for a provider. Without [key] it is read from stdin or prompted for.",
	Example: `  multiai keys set openai sk-...
  echo "$KEY" | multiai keys set claude`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runKeysSet,
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <provider>",
	Short: "Remove the stored API key for a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysDelete,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show which providers have a key",
	Args:  cobra.NoArgs,
	RunE:  runKeysList,
}

var keysOpenCmd = &cobra.Command{
	Use:   "open <provider>",
	Short: "Open the provider's API key page in a browser",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysOpen,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysSetCmd)
	keysCmd.AddCommand(keysDeleteCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysOpenCmd)

	keysListCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func newKeysCmd(cmd *cobra.Command) (KeysCmd, *app, error) {
	a, err := openApp(cmd)
	if err != nil {
		return KeysCmd{}, nil, err
	}
	return KeysCmd{keys: a.keys, customs: a.cfg.CustomProviders, tr: a.tr, open: browser.OpenURL}, a, nil
}

func runKeysSet(cmd *cobra.Command, args []string) error {
	c, a, err := newKeysCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var key string
	if len(args) > 1 {
		key = args[1]
	} else if key, err = promptKey(c.tr); err != nil {
		return err
	}
	return c.Set(cmd.Context(), KeysSetInput{Provider: args[0], Key: key})
}

// promptKey reads a key from piped stdin, or asks for it with masked input.
func promptKey(tr i18n.Translator) (string, error) {
	stat, _ := os.Stdin.Stat()
	if stat != nil && stat.Mode()&os.ModeCharDevice == 0 {
		content, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return pterm.DefaultInteractiveTextInput.WithMask("*").Show(tr.T("enterKey"))
}

func runKeysDelete(cmd *cobra.Command, args []string) error {
	c, a, err := newKeysCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.Delete(cmd.Context(), KeysDeleteInput{Provider: args[0]})
}

func runKeysList(cmd *cobra.Command, args []string) error {
	c, a, err := newKeysCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	output, _ := cmd.Flags().GetString("output")
	return c.List(cmd.Context(), KeysListInput{Output: output})
}

func runKeysOpen(cmd *cobra.Command, args []string) error {
	c, a, err := newKeysCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.Open(cmd.Context(), KeysOpenInput{Provider: args[0]})
}
