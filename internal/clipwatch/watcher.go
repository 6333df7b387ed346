// Package clipwatch polls the clipboard and surfaces newly copied text as attachments.
package clipwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/multiai/cli/internal/ai"
)

const (
	// SignatureKey persists the last picked-up value across runs.
	SignatureKey = "lastAutoPastedSignature"

	DefaultInterval = time.Second
	MinLength       = 20
)

// KV stores the last signature.
type KV interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Watcher checks the clipboard for new content.
type Watcher struct {
	// Read returns the current clipboard text.
	Read     func() (string, error)
	Interval time.Duration

	kv   KV
	last string
	now  func() time.Time
}

// New returns a Watcher on the system clipboard.
func New(kv KV) *Watcher {
	return &Watcher{Read: clipboard.ReadAll, Interval: DefaultInterval, kv: kv, now: time.Now}
}

// Signature identifies clipboard content cheaply: its length and first 50 characters.
func Signature(content string) string {
	r := []rune(content)
	return fmt.Sprintf("%d-%s", len(content), string(r[:min(len(r), 50)]))
}

// Check returns an attachment when the clipboard holds something not seen before.
// Read and storage errors are ignored.
func (w *Watcher) Check(ctx context.Context) *ai.Attachment {
	content, err := w.Read()
	if err != nil || len(content) < MinLength || content == w.last {
		return nil
	}

	sig := Signature(content)
	var saved string
	if _, err := w.kv.Get(ctx, SignatureKey, &saved); err == nil && saved == sig {
		return nil
	}

	w.last = content
	_ = w.kv.Set(ctx, SignatureKey, sig)
	return &ai.Attachment{
		Type:     ai.AttachmentText,
		Content:  content,
		Name:     fmt.Sprintf("auto-pasted-%d.txt", w.now().UnixMilli()),
		MimeType: "text/plain",
	}
}

// Run calls found for each new clipboard value until ctx is done.
func (w *Watcher) Run(ctx context.Context, found func(*ai.Attachment)) {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a := w.Check(ctx); a != nil {
				found(a)
			}
		}
	}
}
