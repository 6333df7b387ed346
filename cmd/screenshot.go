package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/capture"
	"github.com/multiai/cli/internal/i18n"
	"github.com/multiai/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// Screenshotter captures a page. An empty url means the active tab of a remote browser.
type Screenshotter interface {
	Capture(ctx context.Context, url string) ([]byte, error)
	CaptureAttachment(ctx context.Context, url string) (*ai.Attachment, error)
}

// ScreenshotCmd saves page screenshots to disk.
type ScreenshotCmd struct {
	capture Screenshotter
	tr      i18n.Translator
	now     func() time.Time
}

type ScreenshotInput struct {
	URL    string
	Output string
}

func (c ScreenshotCmd) Take(ctx context.Context, in ScreenshotInput) error {
	png, err := c.capture.Capture(ctx, in.URL)
	if err != nil {
		return errors.New(screenshotMessage(c.tr, err))
	}
	path := in.Output
	if path == "" {
		path = fmt.Sprintf("screenshot-%d.png", c.now().UnixMilli())
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	pterm.Success.Printf("%s (%s)\n", c.tr.T("screenshotSaved", "path", path), util.FormatBytes(int64(len(png))))
	return nil
}

// screenshotMessage maps capture failures to their translated message.
func screenshotMessage(tr i18n.Translator, err error) string {
	switch {
	case errors.Is(err, capture.ErrNoActiveTab):
		return tr.T("screenshotNoTab")
	case errors.Is(err, capture.ErrRestrictedURL):
		return tr.T("screenshotRestricted")
	case errors.Is(err, capture.ErrPermission):
		return tr.T("screenshotPermission")
	}
	return err.Error()
}

func newCapturer(cmd *cobra.Command) *capture.Capturer {
	remote, _ := cmd.Flags().GetString("remote")
	chrome, _ := cmd.Flags().GetString("chrome")
	return capture.New(capture.Options{RemoteURL: remote, ExecPath: chrome})
}

func addCaptureFlags(cmd *cobra.Command) {
	cmd.Flags().String("remote", "", "DevTools endpoint of a running browser (e.g. http://localhost:9222); needed to capture its active tab")
	cmd.Flags().String("chrome", "", "Path to the Chrome/Chromium binary used for headless capture")
}

var screenshotCmd = &cobra.Command{
	Use:   "screenshot [url]",
	Short: "Save a screenshot of a page",
	Long: `Capture a page through the Chrome DevTools protocol and save it as PNG.

With a URL a headless browser is launched (or the --remote one is used) to load
it. Without a URL the active tab of the --remote browser is captured.`,
	Example: `  # Capture a site
  multiai screenshot https://example.com -o example.png

  # Capture the active tab of a browser started with --remote-debugging-port=9222
  multiai screenshot --remote http://localhost:9222`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScreenshot,
}

func init() {
	rootCmd.AddCommand(screenshotCmd)
	screenshotCmd.Flags().StringP("output", "o", "", "File to write (default screenshot-<ms>.png)")
	addCaptureFlags(screenshotCmd)
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out, _ := cmd.Flags().GetString("output")
	var url string
	if len(args) > 0 {
		url = args[0]
	}
	c := ScreenshotCmd{capture: newCapturer(cmd), tr: a.tr, now: time.Now}
	return c.Take(cmd.Context(), ScreenshotInput{URL: url, Output: out})
}
