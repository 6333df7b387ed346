package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/chat"
	"github.com/multiai/cli/internal/config"
	"github.com/multiai/cli/internal/i18n"
	"github.com/multiai/cli/internal/keys"
	"github.com/multiai/cli/internal/logging"
	"github.com/multiai/cli/internal/render"
	"github.com/multiai/cli/internal/storage"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// app holds the stores commands work against.
type app struct {
	dataDir string
	cfg     *config.Config
	db      *storage.Store
	chats   *chat.Store
	keys    *keys.Store
	tr      i18n.Translator
}

func openApp(cmd *cobra.Command) (*app, error) {
	dir, _ := cmd.Flags().GetString("data-dir")
	if dir == "" {
		var err error
		if dir, err = config.DataDir(); err != nil {
			return nil, err
		}
	}
	return openAppAt(cmd.Context(), dir)
}

func openAppAt(ctx context.Context, dir string) (*app, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(ctx, filepath.Join(dir, storage.FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	logging.Debug("opened data dir", "dir", dir, "provider", cfg.Provider)
	return &app{
		dataDir: dir,
		cfg:     cfg,
		db:      db,
		chats:   chat.NewStore(db),
		keys:    keys.New(),
		tr:      i18n.New(cfg.Language),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		logging.Warn("failed to close history", "error", err)
	}
}

// provider returns the --provider flag when set, else the configured provider.
func (a *app) provider(cmd *cobra.Command) (string, error) {
	p, _ := cmd.Flags().GetString("provider")
	if p == "" {
		return a.cfg.Provider, nil
	}
	if _, ok := ai.FindCustom(p, a.cfg.CustomProviders); !ok && !ai.IsBuiltin(p) {
		return "", &ai.ProviderNotFoundError{ID: p}
	}
	return p, nil
}

func (a *app) displayName(provider string) string {
	return ai.DisplayName(provider, a.cfg.CustomProviders)
}

func (a *app) newService(provider, apiKey string) (ai.Service, error) {
	return ai.New(provider, apiKey, a.cfg.CustomProviders)
}

// session builds a session for provider with the active conversation restored.
func (a *app) session(ctx context.Context, provider string) (*chat.Session, error) {
	s := chat.NewSession(a.chats, a.keys, a.newService, provider)
	s.SystemPrompt = a.cfg.SystemPrompt
	if err := s.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore conversation: %w", err)
	}
	return s, nil
}

func (a *app) renderer() *render.Renderer {
	r, err := render.New(render.ResolveTheme(a.cfg.Theme), pterm.GetTerminalWidth()-4)
	if err != nil {
		logging.Warn("failed to build markdown renderer", "error", err)
		r, _ = render.New(render.Light, 0)
	}
	return r
}
