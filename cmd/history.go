package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/multiai/cli/internal/chat"
	"github.com/multiai/cli/internal/i18n"
	"github.com/multiai/cli/internal/render"
	"github.com/multiai/cli/pkg/table"
	"github.com/multiai/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// HistoryStore is the conversation store.
type HistoryStore interface {
	HistoryReader
	Load(ctx context.Context, id string) (*chat.Conversation, error)
	Save(ctx context.Context, c chat.Conversation) error
	Replace(ctx context.Context, convs []chat.Conversation) error
	Delete(ctx context.Context, id string) error
	SetActiveID(ctx context.Context, id string) error
	Cleanup(ctx context.Context) (chat.CleanupResult, error)
}

// HistoryCmd manages stored conversations.
type HistoryCmd struct {
	store  HistoryStore
	tr     i18n.Translator
	render *render.Renderer
	now    func() time.Time
}

type HistoryListInput struct {
	Output string
}

type HistoryShowInput struct {
	ID     string
	Output string
}

type HistoryDeleteInput struct {
	ID  string
	All bool
}

type HistoryUseInput struct {
	ID string
}

type HistoryNewInput struct {
	Provider string
}

type HistoryExportInput struct {
	Path string
}

type HistoryImportInput struct {
	Path    string
	Replace bool
}

type HistoryCleanupInput struct {
	Output string
}

func (c HistoryCmd) List(ctx context.Context, in HistoryListInput) error {
	if err := checkOutput(in.Output); err != nil {
		return err
	}
	convs, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	if in.Output == "json" {
		if convs == nil {
			convs = []chat.Conversation{}
		}
		return util.WritePrettyJSON(stdout, convs)
	}
	if len(convs) == 0 {
		pterm.Info.Println(c.tr.T("noConversations"))
		return nil
	}
	active, _ := c.store.ActiveID(ctx)
	table.PrintTableNoPad(conversationRows(convs, active), true)
	return nil
}

func conversationRows(convs []chat.Conversation, active string) pterm.TableData {
	rows := pterm.TableData{{"", "ID", "TITLE", "PROVIDER", "MODEL", "MESSAGES", "UPDATED"}}
	for _, conv := range convs {
		mark := ""
		if conv.ID == active {
			mark = "*"
		}
		rows = append(rows, []string{
			mark,
			conv.ID,
			util.Truncate(conv.Title, 40),
			util.OrDash(conv.Provider),
			util.OrDash(conv.ModelID),
			strconv.Itoa(len(conv.Messages)),
			util.FormatMillis(conv.UpdatedAt),
		})
	}
	return rows
}

// resolve returns the conversation with id, or the active one when id is empty.
func (c HistoryCmd) resolve(ctx context.Context, id string) (*chat.Conversation, error) {
	if id == "" {
		active, err := c.store.ActiveID(ctx)
		if err != nil {
			return nil, err
		}
		if active == "" {
			return nil, errors.New("no active conversation; pass a conversation id")
		}
		id = active
	}
	conv, err := c.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: %s", chat.ErrConversationNotFound, id)
	}
	return conv, nil
}

func (c HistoryCmd) Show(ctx context.Context, in HistoryShowInput) error {
	if err := checkOutput(in.Output); err != nil {
		return err
	}
	conv, err := c.resolve(ctx, in.ID)
	if err != nil {
		return err
	}
	if in.Output == "json" {
		return util.WritePrettyJSON(stdout, conv)
	}

	pterm.DefaultSection.Println(conv.Title)
	pterm.Printf("%s · %s · %s\n\n", conv.ID, util.OrDash(conv.ModelID), util.FormatMillis(conv.UpdatedAt))
	for _, m := range conv.Messages {
		if m.Role == chat.RoleUser {
			line := c.render.Label(c.tr.T("you")+":", true) + " " + m.Content
			if m.AttachmentName != "" {
				line += " " + c.render.Muted("["+m.AttachmentName+"]")
			}
			pterm.Println(line)
		} else {
			pterm.Println(c.render.Label(lo.CoalesceOrEmpty(m.ModelID, m.Provider)+":", false))
			if m.IsError {
				pterm.Println(c.render.Error(m.Content))
			} else {
				pterm.Println(c.render.Markdown(m.Content))
			}
		}
		pterm.Println()
	}
	return nil
}

func (c HistoryCmd) Delete(ctx context.Context, in HistoryDeleteInput) error {
	if in.All {
		if err := c.store.Replace(ctx, nil); err != nil {
			return err
		}
		if err := c.store.SetActiveID(ctx, ""); err != nil {
			return err
		}
		pterm.Success.Println("Deleted all conversations")
		return nil
	}
	if in.ID == "" {
		return errors.New("pass a conversation id or --all")
	}
	conv, err := c.store.Load(ctx, in.ID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("%w: %s", chat.ErrConversationNotFound, in.ID)
	}
	if err := c.store.Delete(ctx, in.ID); err != nil {
		return err
	}
	if active, _ := c.store.ActiveID(ctx); active == in.ID {
		if err := c.store.SetActiveID(ctx, ""); err != nil {
			return err
		}
	}
	pterm.Success.Println(c.tr.T("conversationDeleted", "id", in.ID))
	return nil
}

func (c HistoryCmd) Use(ctx context.Context, in HistoryUseInput) error {
	conv, err := c.resolve(ctx, in.ID)
	if err != nil {
		return err
	}
	if err := c.store.SetActiveID(ctx, conv.ID); err != nil {
		return err
	}
	pterm.Success.Println(c.tr.T("conversationSwitch", "id", conv.ID))
	return nil
}

func (c HistoryCmd) New(ctx context.Context, in HistoryNewInput) error {
	model, err := c.store.SelectedModel(ctx, in.Provider)
	if err != nil {
		return err
	}
	conv := chat.NewConversation(in.Provider, model, c.now())
	if err := c.store.Save(ctx, conv); err != nil {
		return err
	}
	if err := c.store.SetActiveID(ctx, conv.ID); err != nil {
		return err
	}
	pterm.Success.Println(c.tr.T("conversationStarted", "id", conv.ID))
	return nil
}

// Export writes every conversation as a JSON array. An empty path or "-" is stdout.
func (c HistoryCmd) Export(ctx context.Context, in HistoryExportInput) error {
	convs, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	if convs == nil {
		convs = []chat.Conversation{}
	}
	if in.Path == "" || in.Path == "-" {
		return util.WritePrettyJSON(stdout, convs)
	}
	f, err := os.OpenFile(in.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()
	if err := util.WritePrettyJSON(f, convs); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	pterm.Success.Printf("Exported %d conversations to %s\n", len(convs), in.Path)
	return nil
}

// Import reads a JSON array of conversations. Imported entries replace stored ones with
// the same id; with Replace the stored list is discarded first.
func (c HistoryCmd) Import(ctx context.Context, in HistoryImportInput) error {
	var r io.Reader = os.Stdin
	if in.Path != "" && in.Path != "-" {
		f, err := os.Open(in.Path)
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		r = f
	}
	var imported []chat.Conversation
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return fmt.Errorf("failed to parse conversations: %w", err)
	}
	imported = lo.Filter(imported, func(conv chat.Conversation, _ int) bool { return conv.ID != "" })
	for i := range imported {
		imported[i].Messages = lo.Map(imported[i].Messages, func(m chat.Message, _ int) chat.Message {
			m.AttachmentPreview = ""
			return m
		})
		if imported[i].Messages == nil {
			imported[i].Messages = []chat.Message{}
		}
	}

	merged := imported
	if !in.Replace {
		existing, err := c.store.List(ctx)
		if err != nil {
			return err
		}
		merged = lo.UniqBy(append(imported, existing...), func(conv chat.Conversation) string { return conv.ID })
	}
	if err := c.store.Replace(ctx, merged); err != nil {
		return err
	}
	kept := min(len(merged), chat.MaxConversations)
	pterm.Success.Printf("Imported %d conversations (%d stored)\n", len(imported), kept)
	return nil
}

func (c HistoryCmd) Cleanup(ctx context.Context, in HistoryCleanupInput) error {
	if err := checkOutput(in.Output); err != nil {
		return err
	}
	res, err := c.store.Cleanup(ctx)
	if err != nil {
		return err
	}
	if in.Output == "json" {
		return util.WritePrettyJSON(stdout, res)
	}
	switch {
	case res.Reset:
		pterm.Warning.Println("Stored conversations could not be read and were reset")
	case res.StrippedPreviews > 0:
		pterm.Success.Printf("Removed %d oversized attachment previews\n", res.StrippedPreviews)
	default:
		pterm.Info.Println("Nothing to clean up")
	}
	return nil
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage saved conversations",
	Long:  "Commands for listing, showing, switching, exporting and deleting saved conversations.",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a conversation (default: the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryDelete,
}

var historyUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make a conversation the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryUse,
}

var historyNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start an empty conversation and make it active",
	Args:  cobra.NoArgs,
	RunE:  runHistoryNew,
}

var historyExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export conversations as JSON (default: stdout)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryExport,
}

var historyImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import conversations from JSON (default: stdin)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryImport,
}

var historyCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop oversized attachment previews and unreadable data",
	Args:  cobra.NoArgs,
	RunE:  runHistoryCleanup,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyUseCmd)
	historyCmd.AddCommand(historyNewCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
	historyCmd.AddCommand(historyCleanupCmd)

	historyListCmd.Flags().StringP("output", "o", "", "Output format (json)")
	historyShowCmd.Flags().StringP("output", "o", "", "Output format (json)")
	historyCleanupCmd.Flags().StringP("output", "o", "", "Output format (json)")
	historyDeleteCmd.Flags().Bool("all", false, "Delete every conversation")
	historyImportCmd.Flags().Bool("replace", false, "Discard stored conversations before importing")
}

func newHistoryCmd(cmd *cobra.Command) (HistoryCmd, *app, error) {
	a, err := openApp(cmd)
	if err != nil {
		return HistoryCmd{}, nil, err
	}
	return HistoryCmd{store: a.chats, tr: a.tr, render: a.renderer(), now: time.Now}, a, nil
}

func argOrEmpty(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	c, a, err := newHistoryCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	output, _ := cmd.Flags().GetString("output")
	return c.List(cmd.Context(), HistoryListInput{Output: output})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	c, a, err := newHistoryCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	output, _ := cmd.Flags().GetString("output")
	return c.Show(cmd.Context(), HistoryShowInput{ID: argOrEmpty(args), Output: output})
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	c, a, err := newHistoryCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	all, _ := cmd.Flags().GetBool("all")
	return c.Delete(cmd.Context(), HistoryDeleteInput{ID: argOrEmpty(args), All: all})
}

func runHistoryUse(cmd *cobra.Command, args []string) error {
	c, a, err := newHistoryCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.Use(cmd.Context(), HistoryUseInput{ID: args[0]})
}

func runHistoryNew(cmd *cobra.Command, args []string) error {
	c, a, err := newHistoryCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	provider, err := a.provider(cmd)
	if err != nil {
		return err
	}
	return c.New(cmd.Context(), HistoryNewInput{Provider: provider})
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	c, a, err := newHistoryCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.Export(cmd.Context(), HistoryExportInput{Path: argOrEmpty(args)})
}

func runHistoryImport(cmd *cobra.Command, args []string) error {
	c, a, err := newHistoryCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	replace, _ := cmd.Flags().GetBool("replace")
	return c.Import(cmd.Context(), HistoryImportInput{Path: argOrEmpty(args), Replace: replace})
}

func runHistoryCleanup(cmd *cobra.Command, args []string) error {
	c, a, err := newHistoryCmd(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	output, _ := cmd.Flags().GetString("output")
	return c.Cleanup(cmd.Context(), HistoryCleanupInput{Output: output})
}
