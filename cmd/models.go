package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/i18n"
	"github.com/multiai/cli/pkg/table"
	"github.com/multiai/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// ModelSession lists a provider's models and remembers the chosen one.
type ModelSession interface {
	Provider() string
	ModelID() string
	LoadModels(ctx context.Context) ([]ai.Model, error)
	SetModel(ctx context.Context, id string)
}

// ModelsCmd handles model listing and selection.
type ModelsCmd struct {
	session ModelSession
	tr      i18n.Translator
}

type ModelsListInput struct {
	Output string
}

type ModelsUseInput struct {
	ID string
}

type modelEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

func (c ModelsCmd) List(ctx context.Context, in ModelsListInput) error {
	if err := checkOutput(in.Output); err != nil {
		return err
	}
	models, err := c.session.LoadModels(ctx)
	if err != nil {
		return err
	}

	if in.Output == "json" {
		entries := lo.Map(models, func(m ai.Model, _ int) modelEntry {
			return modelEntry{ID: m.ID, Name: m.Name, Selected: m.ID == c.session.ModelID()}
		})
		return util.WritePrettyJSON(stdout, entries)
	}

	if len(models) == 0 {
		pterm.Warning.Println(c.tr.T("noModels", "provider", c.session.Provider()))
		return nil
	}
	table.PrintTableNoPad(modelRows(models, c.session.ModelID()), true)
	return nil
}

func (c ModelsCmd) Use(ctx context.Context, in ModelsUseInput) error {
	models, err := c.session.LoadModels(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return errors.New(c.tr.T("noModels", "provider", c.session.Provider()))
	}
	if !lo.ContainsBy(models, func(m ai.Model) bool { return m.ID == in.ID }) {
		return fmt.Errorf("model %q is not offered by %s", in.ID, c.session.Provider())
	}
	c.session.SetModel(ctx, in.ID)
	pterm.Success.Println(c.tr.T("modelSelected", "model", in.ID))
	return nil
}

func modelRows(models []ai.Model, selected string) pterm.TableData {
	rows := pterm.TableData{{"", "ID", "NAME"}}
	for _, m := range models {
		mark := ""
		if m.ID == selected {
			mark = "*"
		}
		rows = append(rows, []string{mark, m.ID, util.OrDash(m.Name)})
	}
	return rows
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List and select models",
	Long:  "Commands for listing the selected provider's models and choosing one.",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the provider's models",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

var modelsUseCmd = &cobra.Command{
	Use:   "use <model-id>",
	Short: "Select the model used for new messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsUse,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsUseCmd)

	modelsListCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func newModelsCmd(cmd *cobra.Command) (ModelsCmd, *app, error) {
	a, err := openApp(cmd)
	if err != nil {
		return ModelsCmd{}, nil, err
	}
	provider, err := a.provider(cmd)
	if err != nil {
		a.Close()
		return ModelsCmd{}, nil, err
	}
	session, err := a.session(cmd.Context(), provider)
	if err != nil {
		a.Close()
		return ModelsCmd{}, nil, err
	}
	return ModelsCmd{session: session, tr: a.tr}, a, nil
}

func runModelsList(cmd *cobra.Command, args []string) error {
	c, a, err := newModelsCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	output, _ := cmd.Flags().GetString("output")
	return c.List(cmd.Context(), ModelsListInput{Output: output})
}

func runModelsUse(cmd *cobra.Command, args []string) error {
	c, a, err := newModelsCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.Use(cmd.Context(), ModelsUseInput{ID: args[0]})
}
