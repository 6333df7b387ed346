package cmd

import (
	"context"
	"fmt"

	"github.com/multiai/cli/internal/config"
	"github.com/multiai/cli/internal/i18n"
	"github.com/multiai/cli/internal/render"
	"github.com/multiai/cli/pkg/table"
	"github.com/multiai/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// ConfigCmd reads and writes config.yaml.
type ConfigCmd struct {
	cfg *config.Config
	tr  i18n.Translator
}

type ConfigGetInput struct {
	Key    string
	Output string
}

type ConfigSetInput struct {
	Key   string
	Value string
}

type ConfigThemeInput struct {
	Theme string
}

func (c ConfigCmd) Get(ctx context.Context, in ConfigGetInput) error {
	if err := checkOutput(in.Output); err != nil {
		return err
	}
	keys := config.Keys
	if in.Key != "" {
		keys = []string{in.Key}
	}
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := c.cfg.Get(k)
		if err != nil {
			return err
		}
		values[k] = v
	}

	if in.Output == "json" {
		return util.WritePrettyJSON(stdout, values)
	}
	if in.Key != "" {
		fmt.Fprintln(stdout, values[in.Key])
		return nil
	}
	rows := pterm.TableData{{"KEY", "VALUE"}}
	for _, k := range keys {
		rows = append(rows, []string{k, util.OrDash(values[k])})
	}
	rows = append(rows, []string{"file", c.cfg.Path()})
	table.PrintTableNoPad(rows, true)
	return nil
}

func (c ConfigCmd) Set(ctx context.Context, in ConfigSetInput) error {
	if err := c.cfg.Set(in.Key, in.Value); err != nil {
		return err
	}
	if err := c.cfg.Save(); err != nil {
		return err
	}
	pterm.Success.Printf("%s = %s\n", in.Key, util.OrDash(in.Value))
	return nil
}

// Theme sets the theme, or toggles the current one when none is given.
func (c ConfigCmd) Theme(ctx context.Context, in ConfigThemeInput) error {
	value := in.Theme
	if value == "" {
		value = string(render.ResolveTheme(c.cfg.Theme).Toggle())
	}
	if err := c.cfg.Set(config.KeyTheme, value); err != nil {
		return err
	}
	if err := c.cfg.Save(); err != nil {
		return err
	}
	pterm.Success.Println(c.tr.T("themeSet", "theme", value))
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change settings",
	Long: `Commands for the settings stored in config.yaml.

Keys: provider, language (en, tr), theme (light, dark, auto), system_prompt.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Change a setting",
	Example: "  multiai config set language tr\n  multiai config set system_prompt \"Answer briefly.\"",
	Args:    cobra.ExactArgs(2),
	RunE:    runConfigSet,
}

var configThemeCmd = &cobra.Command{
	Use:       "theme [light|dark|auto]",
	Short:     "Set the theme, or toggle between light and dark",
	ValidArgs: []string{"light", "dark", "auto"},
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE:      runConfigTheme,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configThemeCmd)

	configGetCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func newConfigCmd(cmd *cobra.Command) (ConfigCmd, *app, error) {
	a, err := openApp(cmd)
	if err != nil {
		return ConfigCmd{}, nil, err
	}
	return ConfigCmd{cfg: a.cfg, tr: a.tr}, a, nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	c, a, err := newConfigCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	output, _ := cmd.Flags().GetString("output")
	return c.Get(cmd.Context(), ConfigGetInput{Key: argOrEmpty(args), Output: output})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	c, a, err := newConfigCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.Set(cmd.Context(), ConfigSetInput{Key: args[0], Value: args[1]})
}

func runConfigTheme(cmd *cobra.Command, args []string) error {
	c, a, err := newConfigCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.Theme(cmd.Context(), ConfigThemeInput{Theme: argOrEmpty(args)})
}
