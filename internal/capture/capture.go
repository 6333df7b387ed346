// Package capture takes page screenshots through the Chrome DevTools protocol.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/logging"
	"github.com/samber/lo"
)

var (
	ErrNoActiveTab   = errors.New("no active tab found")
	ErrRestrictedURL = errors.New("screenshots cannot be taken on this page (new tab, settings, etc.); open a regular website")
	ErrEmptyCapture  = errors.New("CDP returned empty data")
	ErrPermission    = errors.New("permission error: allow the debugger to attach to this site or try a regular website")
)

var restrictedPrefixes = []string{
	"chrome://",
	"edge://",
	"chrome-extension://",
	"extension://",
	"about:",
	"file://",
}

// ValidateURL rejects pages a screenshot cannot be taken of.
func ValidateURL(u string) error {
	if u == "" || lo.SomeBy(restrictedPrefixes, func(p string) bool { return strings.HasPrefix(u, p) }) {
		return ErrRestrictedURL
	}
	return nil
}

// Options configures the browser used for capture.
type Options struct {
	// RemoteURL is the DevTools websocket or http endpoint of a running browser. Empty
	// launches a headless one.
	RemoteURL string
	ExecPath  string
	Width     int
	Height    int
	Timeout   time.Duration
}

// Capturer takes screenshots.
type Capturer struct {
	opts Options
}

// New returns a Capturer with defaults filled in.
func New(opts Options) *Capturer {
	if opts.Width == 0 {
		opts.Width = 1366
	}
	if opts.Height == 0 {
		opts.Height = 768
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Capturer{opts: opts}
}

func (c *Capturer) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, c.opts.RemoteURL)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.WindowSize(c.opts.Width, c.opts.Height))
	if c.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ExecPath))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

// Capture returns a PNG of url. An empty url captures the active tab of the remote browser.
func (c *Capturer) Capture(ctx context.Context, url string) ([]byte, error) {
	if url != "" {
		if err := ValidateURL(url); err != nil {
			return nil, err
		}
	} else if c.opts.RemoteURL == "" {
		return nil, ErrNoActiveTab
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	allocCtx, cancelAlloc := c.allocator(ctx)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var actions []chromedp.Action
	runCtx := browserCtx
	if url == "" {
		infos, err := chromedp.Targets(browserCtx)
		if err != nil {
			return nil, friendlyError(err)
		}
		info, err := pickActiveTab(infos)
		if err != nil {
			return nil, err
		}
		logging.Debug("capturing active tab", "url", info.URL, "target", info.TargetID)
		tabCtx, cancelTab := chromedp.NewContext(browserCtx, chromedp.WithTargetID(info.TargetID))
		defer cancelTab()
		runCtx = tabCtx
	} else {
		actions = append(actions, chromedp.Navigate(url))
	}

	var buf []byte
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithFromSurface(true).
			Do(ctx)
		return err
	}))
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, friendlyError(err)
	}
	if len(buf) == 0 {
		return nil, ErrEmptyCapture
	}
	return buf, nil
}

// CaptureAttachment captures url as an image attachment.
func (c *Capturer) CaptureAttachment(ctx context.Context, url string) (*ai.Attachment, error) {
	png, err := c.Capture(ctx, url)
	if err != nil {
		return nil, err
	}
	return &ai.Attachment{
		Type:     ai.AttachmentImage,
		Content:  DataURL(png),
		Name:     fmt.Sprintf("screenshot-%d.png", time.Now().UnixMilli()),
		MimeType: "image/png",
	}, nil
}

// DataURL encodes a PNG as a data URL.
func DataURL(png []byte) string {
	return ai.DataURL("image/png", base64.StdEncoding.EncodeToString(png))
}

// pickActiveTab returns the most recently used page target and checks its URL.
func pickActiveTab(infos []*target.Info) (*target.Info, error) {
	info, ok := lo.Find(infos, func(i *target.Info) bool {
		return i != nil && i.Type == "page" && !strings.HasPrefix(i.URL, "devtools://")
	})
	if !ok {
		return nil, ErrNoActiveTab
	}
	if err := ValidateURL(info.URL); err != nil {
		return nil, err
	}
	return info, nil
}

func friendlyError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "permission") || strings.Contains(msg, "Cannot attach") {
		return fmt.Errorf("%w (%s)", ErrPermission, msg)
	}
	return err
}
