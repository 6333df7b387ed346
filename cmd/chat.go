package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/attach"
	"github.com/multiai/cli/internal/chat"
	"github.com/multiai/cli/internal/clipwatch"
	"github.com/multiai/cli/internal/i18n"
	"github.com/multiai/cli/internal/render"
	"github.com/multiai/cli/pkg/table"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// SendSession is what a one-shot send needs from a chat session.
type SendSession interface {
	Provider() string
	ModelID() string
	ConversationID() string
	LoadModels(ctx context.Context) ([]ai.Model, error)
	SetModel(ctx context.Context, id string)
	StartNewChat(ctx context.Context) (chat.Conversation, error)
	Send(ctx context.Context, content string, att *ai.Attachment) (chat.Message, error)
}

// ChatSession is what the interactive chat needs from a chat session.
type ChatSession interface {
	SendSession
	Models() []ai.Model
	Messages() []chat.Message
	SwitchConversation(ctx context.Context, id string) error
	RemoveConversation(ctx context.Context, id string) error
	ClearMessages()
}

// ConversationLister lists stored conversations.
type ConversationLister interface {
	List(ctx context.Context) ([]chat.Conversation, error)
}

// ClipboardWatcher reports new clipboard text until ctx is done.
type ClipboardWatcher interface {
	Run(ctx context.Context, found func(*ai.Attachment))
}

// ChatCmd runs the interactive chat.
type ChatCmd struct {
	session ChatSession
	history ConversationLister
	capture Screenshotter
	load    func(path string) (*ai.Attachment, error)
	watcher ClipboardWatcher
	tr      i18n.Translator
	render  *render.Renderer
	name    string
	in      io.Reader
}

type ChatInput struct {
	Model          string
	WatchClipboard bool
}

// pendingAttachment is the attachment sent with the next message.
type pendingAttachment struct {
	mu  sync.Mutex
	att *ai.Attachment
}

func (p *pendingAttachment) set(a *ai.Attachment) {
	p.mu.Lock()
	p.att = a
	p.mu.Unlock()
}

func (p *pendingAttachment) take() *ai.Attachment {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.att
	p.att = nil
	return a
}

func (c ChatCmd) Run(ctx context.Context, in ChatInput) error {
	models, err := c.session.LoadModels(ctx)
	if err != nil {
		pterm.Warning.Printf("%s: %v\n", c.tr.T("error"), err)
	}
	if in.Model != "" {
		c.session.SetModel(ctx, in.Model)
	}

	pterm.Println()
	pterm.DefaultHeader.WithBackgroundStyle(pterm.NewStyle(pterm.BgBlue)).
		WithTextStyle(pterm.NewStyle(pterm.FgWhite)).
		Println(c.tr.T("startChat", "provider", c.name))
	pterm.Println()
	if c.session.ModelID() == "" && len(models) == 0 {
		pterm.Warning.Println(c.tr.T("noModels", "provider", c.session.Provider()))
	} else {
		pterm.Info.Println(c.tr.T("modelSelected", "model", c.session.ModelID()))
	}
	pterm.Info.Println(c.tr.T("chatHelp"))
	pterm.Println()
	for _, m := range c.session.Messages() {
		c.printMessage(m)
	}

	pending := &pendingAttachment{}
	if in.WatchClipboard && c.watcher != nil {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go c.watcher.Run(wctx, func(a *ai.Attachment) {
			pending.set(a)
			pterm.Info.Println(c.tr.T("clipboardAttached", "name", a.Name))
		})
	}

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		pterm.Print(c.render.Label(c.tr.T("you")+": ", true))
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			pterm.Println()
			pterm.Info.Println(c.tr.T("goodbye"))
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			return scanner.Err()
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if c.handleCommand(ctx, input, pending) {
				pterm.Info.Println(c.tr.T("goodbye"))
				return nil
			}
			continue
		}
		c.send(ctx, input, pending)
	}
}

func (c ChatCmd) send(ctx context.Context, input string, pending *pendingAttachment) {
	att := pending.take()
	spinner, _ := pterm.DefaultSpinner.Start(c.tr.T("thinking", "model", c.session.ModelID()))
	reply, err := c.session.Send(ctx, input, att)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if reply.ID == "" {
		// Nothing was sent; keep the attachment for the next try.
		if att != nil {
			pending.set(att)
		}
		pterm.Error.Println(err)
		return
	}
	c.printMessage(reply)
}

func (c ChatCmd) printMessage(m chat.Message) {
	if m.Role == chat.RoleUser {
		line := c.render.Label(c.tr.T("you")+":", true) + " " + m.Content
		if m.AttachmentName != "" {
			line += " " + c.render.Muted("["+m.AttachmentName+"]")
		}
		pterm.Println(line)
		pterm.Println()
		return
	}
	pterm.Println(c.render.Label(lo.CoalesceOrEmpty(m.ModelID, c.name)+":", false))
	if m.IsError {
		pterm.Println(c.render.Error(m.Content))
	} else {
		pterm.Println(c.render.Markdown(m.Content))
	}
	pterm.Println()
}

// handleCommand runs a slash command and reports whether the chat should end.
func (c ChatCmd) handleCommand(ctx context.Context, input string, pending *pendingAttachment) bool {
	parts := strings.Fields(input)
	name := strings.ToLower(parts[0])
	arg := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))

	switch name {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/?":
		pterm.Info.Println(c.tr.T("chatHelp"))

	case "/new":
		conv, err := c.session.StartNewChat(ctx)
		if err != nil {
			pterm.Error.Printf("failed to start conversation: %v\n", err)
			break
		}
		pterm.Success.Println(c.tr.T("conversationStarted", "id", conv.ID))

	case "/history":
		convs, err := c.history.List(ctx)
		if err != nil {
			pterm.Error.Println(err)
			break
		}
		if len(convs) == 0 {
			pterm.Info.Println(c.tr.T("noConversations"))
			break
		}
		table.PrintTableNoPad(conversationRows(convs, c.session.ConversationID()), true)

	case "/switch":
		if arg == "" {
			pterm.Warning.Println("usage: /switch <id>")
			break
		}
		if err := c.session.SwitchConversation(ctx, arg); err != nil {
			pterm.Error.Println(err)
			break
		}
		pterm.Success.Println(c.tr.T("conversationSwitch", "id", arg))
		pterm.Println()
		for _, m := range c.session.Messages() {
			c.printMessage(m)
		}

	case "/delete":
		if arg == "" {
			pterm.Warning.Println("usage: /delete <id>")
			break
		}
		if err := c.session.RemoveConversation(ctx, arg); err != nil {
			pterm.Error.Println(err)
			break
		}
		pterm.Success.Println(c.tr.T("conversationDeleted", "id", arg))

	case "/model":
		if arg == "" {
			models := c.session.Models()
			if len(models) == 0 {
				pterm.Warning.Println(c.tr.T("noModels", "provider", c.session.Provider()))
				break
			}
			table.PrintTableNoPad(modelRows(models, c.session.ModelID()), true)
			break
		}
		if models := c.session.Models(); len(models) > 0 && !lo.ContainsBy(models, func(m ai.Model) bool { return m.ID == arg }) {
			pterm.Warning.Printf("model %q is not offered by %s\n", arg, c.name)
			break
		}
		c.session.SetModel(ctx, arg)
		pterm.Success.Println(c.tr.T("modelSelected", "model", arg))

	case "/attach":
		if arg == "" {
			pterm.Warning.Println("usage: /attach <path>")
			break
		}
		att, err := c.load(arg)
		if err != nil {
			pterm.Error.Println(err)
			break
		}
		pending.set(att)
		pterm.Success.Println(c.tr.T("attached", "name", att.Name))

	case "/screenshot":
		if c.capture == nil {
			pterm.Error.Println(c.tr.T("screenshotNoTab"))
			break
		}
		spinner, _ := pterm.DefaultSpinner.Start(c.tr.T("loading"))
		att, err := c.capture.CaptureAttachment(ctx, arg)
		if spinner != nil {
			_ = spinner.Stop()
		}
		if err != nil {
			pterm.Error.Println(screenshotMessage(c.tr, err))
			break
		}
		pending.set(att)
		pterm.Success.Println(c.tr.T("attached", "name", att.Name))

	case "/clear":
		fmt.Fprint(stdout, "\033[H\033[2J")
		c.session.ClearMessages()
		pterm.Info.Println(c.tr.T("cleared"))

	default:
		pterm.Warning.Printf("Unknown command: %s (use /help for available commands)\n", name)
	}
	return false
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with the selected provider",
	Long: `Start an interactive chat session.

The active conversation is restored and every message is saved to the local
history. Type your message and press Enter.

Special commands:
  /quit, /exit, /q     - Exit the chat session
  /new                 - Start a new conversation
  /history             - List saved conversations
  /switch <id>         - Continue a saved conversation
  /delete <id>         - Delete a saved conversation
  /model [id]          - List models or change the model
  /attach <path>       - Attach an image, text or PDF file to the next message
  /screenshot [url]    - Attach a screenshot of a page (or the active tab with --remote)
  /clear               - Clear the screen
  /help                - Show available commands`,
	Example: `  # Chat with the configured provider
  multiai chat

  # Chat with Claude using a specific model
  multiai chat -p claude --model claude-3-5-sonnet-20241022

  # Attach copied text automatically
  multiai chat --watch-clipboard`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("model", "m", "", "Model to use")
	chatCmd.Flags().Bool("watch-clipboard", false, "Attach new clipboard text to the next message")
	addCaptureFlags(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	provider, err := a.provider(cmd)
	if err != nil {
		return err
	}
	session, err := a.session(ctx, provider)
	if err != nil {
		return err
	}
	model, _ := cmd.Flags().GetString("model")
	watch, _ := cmd.Flags().GetBool("watch-clipboard")

	c := ChatCmd{
		session: session,
		history: a.chats,
		capture: newCapturer(cmd),
		load:    attach.Load,
		watcher: clipwatch.New(a.db),
		tr:      a.tr,
		render:  a.renderer(),
		name:    a.displayName(provider),
		in:      os.Stdin,
	}
	return c.Run(ctx, ChatInput{Model: model, WatchClipboard: watch})
}
