package tui

import (
	"context"
	"errors"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == StateThinking {
			// Keep the thinking indicator animating
			m.rebuildViewportContent()
		}
		return m, cmd

	case askStartedMsg:
		m.askCancel = msg.cancel
		m.askEventCh = msg.eventCh
		m.refresh()
		return m, awaitAnswer(msg.eventCh)

	case askDoneMsg:
		m.finishAsk()
		m.addMessage(Message{
			Role:    roleAssistant,
			Text:    msg.result.Answer,
			Sources: msg.result.Sources,
		})
		m.refresh()
		return m, m.input.Focus()

	case askErrorMsg:
		m.finishAsk()
		m.addMessage(askFailureMessage(msg.err))
		m.refresh()
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resize fits the viewport into whatever is left after the fixed rows
// around it.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	m.viewport.SetWidth(width)
	m.viewport.SetHeight(max(height-chromeRows-m.input.Height(), minViewportRows))
	m.input.SetWidth(width - 4) // leave room for the "> " prefix
	m.help.SetWidth(width)
	m.markdown.UpdateWidth(width)

	m.rebuildViewportContent()
}

// finishAsk releases the question bookkeeping and returns to input
// mode.
func (m *Model) finishAsk() {
	m.state = StateInput
	m.cancelAsk()
	m.askEventCh = nil
}

// refresh re-renders the transcript and scrolls to the newest entry.
func (m *Model) refresh() {
	m.rebuildViewportContent()
	m.viewport.GotoBottom()
}

// askFailureMessage maps a failed question to its transcript entry.
// Cancellation is the user's own doing, so it lands as a quiet system
// note rather than an error.
func askFailureMessage(err error) Message {
	switch {
	case errors.Is(err, context.Canceled):
		return Message{Role: roleSystem, Text: "(Canceled)"}
	case errors.Is(err, context.DeadlineExceeded):
		return Message{Role: roleError, Text: "Query timeout (>2 min). Try a shorter question."}
	default:
		return Message{Role: roleError, Text: err.Error()}
	}
}
