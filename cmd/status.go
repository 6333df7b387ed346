package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/config"
	"github.com/multiai/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type providerStatus struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Key    string `json:"key,omitempty"`
	Models int    `json:"models,omitempty"`
	Error  string `json:"error,omitempty"`
}

type statusResponse struct {
	Provider      string           `json:"provider"`
	Model         string           `json:"model,omitempty"`
	DataDir       string           `json:"dataDir"`
	Conversations int              `json:"conversations"`
	Active        string           `json:"activeConversation,omitempty"`
	Providers     []providerStatus `json:"providers"`
}

// HistoryReader reads stored conversations and selections.
type HistoryReader interface {
	ConversationLister
	ActiveID(ctx context.Context) (string, error)
	SelectedModel(ctx context.Context, provider string) (string, error)
}

// StatusCmd reports which providers are usable.
type StatusCmd struct {
	cfg     *config.Config
	keys    KeyStore
	history HistoryReader
	factory func(provider, apiKey string) (ai.Service, error)
	dataDir string
}

type StatusInput struct {
	Check   bool
	Timeout time.Duration
	Output  string
}

func (c StatusCmd) Run(ctx context.Context, in StatusInput) error {
	if err := checkOutput(in.Output); err != nil {
		return err
	}

	resp := statusResponse{Provider: c.cfg.Provider, DataDir: c.dataDir}
	if convs, err := c.history.List(ctx); err == nil {
		resp.Conversations = len(convs)
	}
	resp.Active, _ = c.history.ActiveID(ctx)
	resp.Model, _ = c.history.SelectedModel(ctx, c.cfg.Provider)

	ids := make([]string, 0, 8+len(c.cfg.CustomProviders))
	for _, p := range ai.Providers() {
		ids = append(ids, p.ID)
	}
	for _, p := range c.cfg.CustomProviders {
		ids = append(ids, p.ID)
	}

	resp.Providers = make([]providerStatus, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		st := providerStatus{ID: id, Name: ai.DisplayName(id, c.cfg.CustomProviders), Status: "no_key"}
		key, src, err := c.keys.Lookup(ctx, id)
		switch {
		case err != nil:
			st.Status, st.Error = "error", err.Error()
		case key != "":
			st.Status, st.Key = "key", string(src)
		}
		resp.Providers[i] = st
		if !in.Check || key == "" {
			continue
		}
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			resp.Providers[i] = c.probe(ctx, resp.Providers[i], key, in.Timeout)
		}(i, key)
	}
	wg.Wait()

	if in.Output == "json" {
		return util.WritePrettyJSON(stdout, resp)
	}
	printStatus(resp)
	return nil
}

// probe lists the provider's models to confirm the key works.
func (c StatusCmd) probe(ctx context.Context, st providerStatus, key string, timeout time.Duration) providerStatus {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	svc, err := c.factory(st.ID, key)
	if err == nil {
		var models []ai.Model
		if models, err = svc.Models(ctx); err == nil {
			st.Models = len(models)
			if len(models) == 0 {
				st.Status = "no_models"
			} else {
				st.Status = "reachable"
			}
			return st
		}
	}
	st.Status, st.Error = "error", err.Error()
	return st
}

var statusDisplay = map[string]struct {
	label string
	rgb   pterm.RGB
}{
	"reachable": {label: "Reachable", rgb: pterm.NewRGB(31, 163, 130)},
	"key":       {label: "Key configured", rgb: pterm.NewRGB(31, 163, 130)},
	"no_models": {label: "No models", rgb: pterm.NewRGB(245, 158, 11)},
	"no_key":    {label: "No key", rgb: pterm.NewRGB(128, 128, 128)},
	"error":     {label: "Error", rgb: pterm.NewRGB(239, 68, 68)},
}

func getStatusDisplay(status string) (string, pterm.RGB) {
	if d, ok := statusDisplay[status]; ok {
		return d.label, d.rgb
	}
	return "Unknown", pterm.NewRGB(128, 128, 128)
}

func keyStatus(configured bool) string {
	if configured {
		return "key"
	}
	return "no_key"
}

func coloredDot(rgb pterm.RGB) string {
	return rgb.Sprint("●")
}

func printStatus(resp statusResponse) {
	pterm.Println()
	pterm.Println("  " + pterm.Bold.Sprint("Providers"))
	for _, p := range resp.Providers {
		label, rgb := getStatusDisplay(p.Status)
		detail := label
		switch {
		case p.Error != "":
			detail = fmt.Sprintf("%s: %s", label, p.Error)
		case p.Models > 0:
			detail = fmt.Sprintf("%s (%d models, key from %s)", label, p.Models, p.Key)
		case p.Key != "":
			detail = fmt.Sprintf("%s (%s)", label, p.Key)
		}
		name := p.Name
		if p.ID == resp.Provider {
			name += " *"
		}
		pterm.Printf("    %s %-22s %s\n", coloredDot(rgb), name, detail)
	}
	pterm.Println()
	pterm.Printf("  %-12s %s\n", "Model", util.OrDash(resp.Model))
	pterm.Printf("  %-12s %d\n", "History", resp.Conversations)
	pterm.Printf("  %-12s %s\n", "Active", util.OrDash(resp.Active))
	pterm.Printf("  %-12s %s\n", "Data dir", resp.DataDir)
	pterm.Println()
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers have keys and whether they respond",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("check", false, "List models of every provider with a key to confirm it works")
	statusCmd.Flags().Duration("timeout", 10*time.Second, "Per-provider timeout for --check")
	statusCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	in := StatusInput{}
	in.Check, _ = cmd.Flags().GetBool("check")
	in.Timeout, _ = cmd.Flags().GetDuration("timeout")
	in.Output, _ = cmd.Flags().GetString("output")

	c := StatusCmd{cfg: a.cfg, keys: a.keys, history: a.chats, factory: a.newService, dataDir: a.dataDir}
	return c.Run(cmd.Context(), in)
}
