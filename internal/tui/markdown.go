package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const fallbackWrapWidth = 80

// markdownRenderer converts Markdown answers to styled terminal output.
// Wraps glamour and recreates the renderer only when the width changes.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// glamourAt builds a terminal renderer wrapping at the given width,
// picking a light or dark style to match the terminal background.
func glamourAt(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
}

// newMarkdownRenderer creates a renderer with terminal-appropriate
// styling. Returns nil if initialization fails; callers fall back to
// plain text.
func newMarkdownRenderer(width int) *markdownRenderer {
	if width <= 0 {
		width = fallbackWrapWidth
	}
	r, err := glamourAt(width)
	if err != nil {
		return nil
	}
	return &markdownRenderer{renderer: r, width: width}
}

// UpdateWidth recreates the renderer if the width actually changed.
// Returns true if the renderer was updated.
func (m *markdownRenderer) UpdateWidth(width int) bool {
	if m == nil || width <= 0 || m.width == width {
		return false
	}
	r, err := glamourAt(width)
	if err != nil {
		// Keep the existing renderer on error
		return false
	}
	m.renderer = r
	m.width = width
	return true
}

// Render converts Markdown to styled terminal output.
// Returns the original text if rendering fails.
func (m *markdownRenderer) Render(markdown string) string {
	if m == nil || m.renderer == nil {
		return markdown
	}
	out, err := m.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	// Glamour pads its output with trailing newlines
	return strings.TrimRight(out, "\n")
}
