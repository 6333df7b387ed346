// Package render styles chat output for the terminal.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/termenv"
)

// Theme is the color scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

var hasDarkBackground = termenv.HasDarkBackground

// ParseTheme accepts "light" or "dark".
func ParseTheme(s string) (Theme, bool) {
	switch Theme(strings.ToLower(s)) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	}
	return "", false
}

// ResolveTheme returns the stored theme, or follows the terminal background.
func ResolveTheme(stored string) Theme {
	if t, ok := ParseTheme(stored); ok {
		return t
	}
	if hasDarkBackground() {
		return Dark
	}
	return Light
}

// Toggle flips between light and dark.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

type palette struct {
	user, assistant, err, muted string
}

var palettes = map[Theme]palette{
	Light: {user: "#1D4ED8", assistant: "#047857", err: "#B91C1C", muted: "#6B7280"},
	Dark:  {user: "#60A5FA", assistant: "#34D399", err: "#F87171", muted: "#9CA3AF"},
}

// Renderer formats messages for one theme.
type Renderer struct {
	theme Theme
	md    *glamour.TermRenderer
	pal   palette
}

// New builds a Renderer. A zero width disables wrapping.
func New(theme Theme, width int) (*Renderer, error) {
	if _, ok := palettes[theme]; !ok {
		theme = Light
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(string(theme)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{theme: theme, md: md, pal: palettes[theme]}, nil
}

// Theme is the theme the renderer was built for.
func (r *Renderer) Theme() Theme {
	return r.theme
}

// Markdown renders an assistant reply. Rendering failures return the input unchanged.
func (r *Renderer) Markdown(s string) string {
	out, err := r.md.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}

// Label renders a speaker label.
func (r *Renderer) Label(name string, user bool) string {
	c := r.pal.assistant
	if user {
		c = r.pal.user
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c)).Render(name)
}

// Error renders an error reply.
func (r *Renderer) Error(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(r.pal.err)).Render(s)
}

// Muted renders secondary text.
func (r *Renderer) Muted(s string) string {
	return lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color(r.pal.muted)).Render(s)
}
