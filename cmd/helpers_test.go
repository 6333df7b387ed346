package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/multiai/cli/internal/ai"
	"github.com/multiai/cli/internal/chat"
	"github.com/multiai/cli/internal/keys"
	"github.com/multiai/cli/internal/render"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

var ansiSeq = regexp.MustCompile("\x1b\\[[0-9;?]*[ -/]*[@-~]")

// String returns everything written so far without terminal escape sequences.
func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ansiSeq.ReplaceAllString(s.buf.String(), "")
}

// captureOutput redirects pterm and machine-readable output into a buffer.
func captureOutput(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	orig := stdout
	stdout = buf
	pterm.SetDefaultOutput(buf)
	pterm.DisableStyling()
	t.Cleanup(func() {
		stdout = orig
		pterm.SetDefaultOutput(os.Stdout)
		pterm.EnableStyling()
	})
	return buf
}

type FakeAIService struct {
	ModelsFunc func(ctx context.Context) ([]ai.Model, error)
	SendFunc   func(ctx context.Context, req ai.SendRequest) (string, error)
}

func (f *FakeAIService) Models(ctx context.Context) ([]ai.Model, error) {
	if f.ModelsFunc != nil {
		return f.ModelsFunc(ctx)
	}
	return []ai.Model{{ID: "m1", Name: "Model One"}, {ID: "m2", Name: "Model Two"}}, nil
}

func (f *FakeAIService) Send(ctx context.Context, req ai.SendRequest) (string, error) {
	if f.SendFunc != nil {
		return f.SendFunc(ctx, req)
	}
	return "reply to " + req.Message, nil
}

// newTestApp opens an app over a temp data dir with an in-memory keychain and no
// provider keys in the environment.
func newTestApp(t *testing.T) *app {
	t.Helper()
	keyring.MockInit()
	t.Setenv(keys.DisableEnv, "")
	for _, p := range ai.Providers() {
		t.Setenv(p.EnvVar, "")
	}
	a, err := openAppAt(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func testSession(t *testing.T, a *app, svc ai.Service) *chat.Session {
	t.Helper()
	s := chat.NewSession(a.chats, a.keys, func(provider, apiKey string) (ai.Service, error) {
		return svc, nil
	}, "gemini")
	require.NoError(t, s.Restore(context.Background()))
	return s
}

func testRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	r, err := render.New(render.Dark, 0)
	require.NoError(t, err)
	return r
}

func fixedNow() time.Time {
	return time.UnixMilli(1700000000000)
}

func inputLines(s ...string) *strings.Reader {
	return strings.NewReader(strings.Join(s, "\n") + "\n")
}

// gatedReader blocks reads until gate is closed.
type gatedReader struct {
	gate <-chan struct{}
	r    io.Reader
}

func (g *gatedReader) Read(p []byte) (int, error) {
	<-g.gate
	return g.r.Read(p)
}
