package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/attach"
	"github.com/multiai/cli/internal/i18n"
	"github.com/multiai/cli/internal/render"
	"github.com/multiai/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// activeTab is the --screenshot value used when the flag is given without a URL.
const activeTab = "active-tab"

// SendCmd sends one message and prints the reply.
type SendCmd struct {
	session       SendSession
	capture       Screenshotter
	load          func(path string) (*ai.Attachment, error)
	readClipboard func() (string, error)
	tr            i18n.Translator
	render        *render.Renderer
	now           func() time.Time
}

type SendInput struct {
	Message    string
	Attach     string
	Screenshot string
	Clipboard  bool
	Model      string
	New        bool
	JSON       bool
	Raw        bool
}

// SendResponse represents the JSON output of the send command.
type SendResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	Attachment     string `json:"attachment,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (c SendCmd) Send(ctx context.Context, in SendInput) error {
	att, err := c.attachment(ctx, in)
	if err != nil {
		return err
	}
	if in.Message == "" && att == nil {
		return fmt.Errorf("no message provided. Provide a message as an argument, via stdin, or with --file")
	}

	if _, err := c.session.LoadModels(ctx); err != nil {
		return err
	}
	if in.Model != "" {
		c.session.SetModel(ctx, in.Model)
	}
	if c.session.ModelID() == "" {
		return errors.New(c.tr.T("noModels", "provider", c.session.Provider()))
	}
	if in.New {
		if _, err := c.session.StartNewChat(ctx); err != nil {
			return fmt.Errorf("failed to start conversation: %w", err)
		}
	}

	quiet := in.JSON || in.Raw
	var spinner *pterm.SpinnerPrinter
	if !quiet {
		spinner, _ = pterm.DefaultSpinner.Start(c.tr.T("thinking", "model", c.session.ModelID()))
	}
	reply, sendErr := c.session.Send(ctx, in.Message, att)
	if spinner != nil {
		_ = spinner.Stop()
	}

	if in.JSON {
		resp := SendResponse{
			Response:       reply.Content,
			ConversationID: c.session.ConversationID(),
			Provider:       c.session.Provider(),
			Model:          c.session.ModelID(),
		}
		if att != nil {
			resp.Attachment = att.Name
		}
		if sendErr != nil {
			resp.Response = ""
			resp.Error = sendErr.Error()
		}
		if err := util.WritePrettyJSON(stdout, resp); err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		return sendErr
	}
	if sendErr != nil {
		return sendErr
	}
	if in.Raw {
		fmt.Fprint(stdout, reply.Content)
		return nil
	}

	pterm.Println()
	pterm.Println(c.render.Label(c.session.ModelID()+":", false))
	pterm.Println()
	pterm.Println(c.render.Markdown(reply.Content))
	return nil
}

// attachment resolves at most one of --attach, --screenshot and --clipboard.
func (c SendCmd) attachment(ctx context.Context, in SendInput) (*ai.Attachment, error) {
	set := 0
	for _, b := range []bool{in.Attach != "", in.Screenshot != "", in.Clipboard} {
		if b {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("use only one of --attach, --screenshot and --clipboard")
	}

	switch {
	case in.Attach != "":
		return c.load(in.Attach)
	case in.Screenshot != "":
		url := in.Screenshot
		if url == activeTab {
			url = ""
		}
		att, err := c.capture.CaptureAttachment(ctx, url)
		if err != nil {
			return nil, errors.New(screenshotMessage(c.tr, err))
		}
		return att, nil
	case in.Clipboard:
		text, err := c.readClipboard()
		if err != nil {
			return nil, fmt.Errorf("failed to read clipboard: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return nil, errors.New("clipboard is empty")
		}
		return &ai.Attachment{
			Type:     ai.AttachmentText,
			Content:  text,
			Name:     fmt.Sprintf("clipboard-%d.txt", c.now().UnixMilli()),
			MimeType: "text/plain",
		}, nil
	}
	return nil, nil
}

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send a single message and print the reply",
	Long: `Send a single message to the selected provider and get the response.

The message can be provided as:
- A command line argument
- From stdin (piped input)
- From a file (using --file)

The exchange is saved to the active conversation. This command is designed for
scripting and automation. For interactive conversations, use 'multiai chat' instead.`,
	Example: `  # Send a message as argument
  multiai send "What is 2+2?"

  # Pipe a message from stdin
  echo "Explain this error" | multiai send

  # Ask about an image or a PDF
  multiai send "What is in this picture?" --attach photo.png

  # Ask about a web page
  multiai send "Summarize this page" --screenshot=https://example.com

  # Output as JSON for scripting
  multiai send "Hello" --json`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringP("file", "f", "", "Read message from file")
	sendCmd.Flags().StringP("attach", "a", "", "Attach an image, text or PDF file")
	sendCmd.Flags().String("screenshot", "", "Attach a screenshot of a URL; without a value the active tab of the --remote browser")
	sendCmd.Flags().Lookup("screenshot").NoOptDefVal = activeTab
	sendCmd.Flags().Bool("clipboard", false, "Attach the clipboard text")
	sendCmd.Flags().StringP("model", "m", "", "Model to use")
	sendCmd.Flags().String("system", "", "System prompt for this message")
	sendCmd.Flags().Bool("new", false, "Start a new conversation")
	sendCmd.Flags().Bool("json", false, "Output response as JSON")
	sendCmd.Flags().Bool("raw", false, "Output raw response without formatting")
	addCaptureFlags(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	filePath, _ := cmd.Flags().GetString("file")
	system, _ := cmd.Flags().GetString("system")

	message, err := readMessage(args, filePath)
	if err != nil {
		return err
	}

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
	if system != "" {
		session.SystemPrompt = system
	}

	in := SendInput{Message: message}
	in.Attach, _ = cmd.Flags().GetString("attach")
	in.Screenshot, _ = cmd.Flags().GetString("screenshot")
	in.Clipboard, _ = cmd.Flags().GetBool("clipboard")
	in.Model, _ = cmd.Flags().GetString("model")
	in.New, _ = cmd.Flags().GetBool("new")
	in.JSON, _ = cmd.Flags().GetBool("json")
	in.Raw, _ = cmd.Flags().GetBool("raw")

	c := SendCmd{
		session:       session,
		capture:       newCapturer(cmd),
		load:          attach.Load,
		readClipboard: clipboard.ReadAll,
		tr:            a.tr,
		render:        a.renderer(),
		now:           time.Now,
	}
	return c.Send(ctx, in)
}

// readMessage takes the message from args, then the file, then piped stdin.
func readMessage(args []string, filePath string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	content, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(content)), nil
}
