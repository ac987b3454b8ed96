package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/kavi0/sherpa/internal/rag"
)

// View implements tea.Model. The transcript scrolls in the viewport;
// the prompt, separators, and help bar sit below it on fixed rows.
func (m *Model) View() tea.View {
	m.frame.Reset()

	sep := m.renderSeparator()
	for _, row := range []string{
		m.viewport.View(),
		sep,
		m.styles.Prompt.Render("> ") + m.input.View(),
		sep,
		m.renderStatusBar(),
	} {
		_, _ = m.frame.WriteString(row)
		_, _ = m.frame.WriteString("\n")
	}

	v := tea.NewView(strings.TrimSuffix(m.frame.String(), "\n"))
	v.AltScreen = true
	return v
}

// rebuildViewportContent re-renders the banner, tips, and every
// transcript entry into the viewport.
func (m *Model) rebuildViewportContent() {
	var b strings.Builder
	_, _ = b.WriteString(m.styles.RenderBanner())
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(m.styles.RenderWelcomeTips())
	_, _ = b.WriteString("\n")

	for _, msg := range m.messages {
		_, _ = b.WriteString(m.renderMessage(msg))
		_, _ = b.WriteString("\n\n")
	}

	if m.state == StateThinking {
		_, _ = b.WriteString(m.spinner.View())
		_, _ = b.WriteString(" Thinking...\n\n")
	}

	m.viewport.SetContent(b.String())
}

// renderMessage formats one transcript entry with its role prefix.
func (m *Model) renderMessage(msg Message) string {
	switch msg.Role {
	case roleUser:
		return m.styles.User.Render("You> ") + msg.Text
	case roleAssistant:
		out := m.styles.Assistant.Render("Sherpa> ") + m.markdown.Render(msg.Text)
		if len(msg.Sources) > 0 {
			out += "\n" + m.renderSources(msg.Sources)
		}
		return out
	case roleSystem:
		return m.styles.System.Render(msg.Text)
	case roleError:
		return m.styles.Error.Render("Error: " + msg.Text)
	}
	return msg.Text
}

// renderSources formats the citation footer under an answer: each
// article's title and similarity score, with the URL when known.
func (m *Model) renderSources(sources []rag.Source) string {
	lines := make([]string, 0, 2*len(sources)+1)
	lines = append(lines, m.styles.Source.Render("Sources:"))
	for i, src := range sources {
		entry := fmt.Sprintf("  %d. %s (%.2f)", i+1, src.Title, src.Score)
		lines = append(lines, m.styles.Source.Render(entry))
		if src.URL != "" {
			lines = append(lines, m.styles.Source.Render("     "+src.URL))
		}
	}
	return strings.Join(lines, "\n")
}

// renderSeparator draws a horizontal rule across the full width.
func (m *Model) renderSeparator() string {
	w := m.width
	if w <= 0 {
		w = fallbackWrapWidth
	}
	return m.styles.Separator.Render(strings.Repeat("─", w))
}

// renderStatusBar shows the shortcuts valid in the current state.
func (m *Model) renderStatusBar() string {
	bindings := []key.Binding{
		m.keys.Submit, m.keys.NewLine, m.keys.History,
		m.keys.Cancel, m.keys.Quit, m.keys.ScrollUp,
	}
	if m.state == StateThinking {
		bindings = []key.Binding{
			m.keys.EscCancel, m.keys.Cancel,
			m.keys.ScrollUp, m.keys.ScrollDown,
		}
	}
	return m.help.ShortHelpView(bindings)
}
