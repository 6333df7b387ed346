// Package logging routes diagnostics through a pterm logger on stderr.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

var (
	mu     sync.RWMutex
	logger = pterm.DefaultLogger.WithLevel(pterm.LogLevelWarn).WithWriter(os.Stderr)
)

// SetDebug switches between debug and warning level output.
func SetDebug(on bool) {
	mu.Lock()
	defer mu.Unlock()
	if on {
		pterm.EnableDebugMessages()
		logger = logger.WithLevel(pterm.LogLevelDebug)
		return
	}
	pterm.DisableDebugMessages()
	logger = logger.WithLevel(pterm.LogLevelWarn)
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.WithWriter(w)
}

func current() *pterm.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs msg with key/value pairs.
func Debug(msg string, kv ...any) {
	l := current()
	l.Debug(msg, l.Args(kv...))
}

// Info logs msg with key/value pairs.
func Info(msg string, kv ...any) {
	l := current()
	l.Info(msg, l.Args(kv...))
}

// Warn logs msg with key/value pairs.
func Warn(msg string, kv ...any) {
	l := current()
	l.Warn(msg, l.Args(kv...))
}

// Error logs msg with key/value pairs.
func Error(msg string, kv ...any) {
	l := current()
	l.Error(msg, l.Args(kv...))
}
