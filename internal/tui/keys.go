package tui

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// Slash commands understood by the prompt.
const (
	cmdHelp  = "/help"
	cmdClear = "/clear"
	cmdExit  = "/exit"
	cmdQuit  = "/quit"
)

const slashHelp = `Commands: /help, /clear, /exit
Shortcuts:
  Enter: send question
  Shift+Enter: new line
  Ctrl+C: cancel/clear
  Ctrl+D: exit
  Up/Down: history
  PgUp/PgDn: scroll`

// keyMap feeds the help bar at the bottom of the screen.
type keyMap struct {
	Submit     key.Binding
	NewLine    key.Binding
	History    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	EscCancel  key.Binding
}

func bind(label, action string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, action))
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:     bind("enter", "send", "enter"),
		NewLine:    bind("s+enter", "newline", "shift+enter"),
		History:    bind("↑/↓", "history", "up", "down"),
		Cancel:     bind("ctrl+c", "cancel", "ctrl+c"),
		Quit:       bind("ctrl+d", "exit", "ctrl+d"),
		ScrollUp:   bind("pgup", "scroll up", "pgup"),
		ScrollDown: bind("pgdn", "scroll down", "pgdown"),
		EscCancel:  bind("esc", "cancel", "esc"),
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return m.handleCtrlC()
		case 'd':
			return m, m.cleanup()
		}
	}

	switch k.Code {
	case tea.KeyEnter:
		// Shift+Enter falls through to the textarea as a newline
		if m.state == StateInput && k.Mod&tea.ModShift == 0 {
			return m.handleSubmit()
		}

	case tea.KeyUp:
		// Only the prompt's first line recalls history; inside a
		// multi-line draft the arrow moves the cursor
		if m.state == StateInput && m.input.Line() == 0 {
			return m.navigateHistory(-1)
		}

	case tea.KeyDown:
		if m.state == StateInput && m.input.Line() == m.input.LineCount()-1 {
			return m.navigateHistory(1)
		}

	case tea.KeyEscape:
		if m.state == StateThinking {
			// The canceled question reports back through its event
			// channel, which adds the "(Canceled)" notice
			m.cancelAsk()
			m.state = StateInput
			return m, nil
		}

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	// Everything else types into the prompt, even while an answer is
	// pending, so the next question can be drafted early
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleCtrlC clears the prompt, cancels a pending question, or quits
// when pressed twice within a second.
func (m *Model) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()
	if now.Sub(m.lastCtrlC) < time.Second {
		return m, m.cleanup()
	}
	m.lastCtrlC = now

	if m.state == StateThinking {
		m.cancelAsk()
		m.state = StateInput
		return m, nil
	}
	m.input.Reset()
	return m, nil
}

func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" {
		return m, nil
	}
	if strings.HasPrefix(question, "/") {
		return m.handleSlashCommand(question)
	}

	m.rememberQuestion(question)
	m.addMessage(Message{Role: roleUser, Text: question})
	m.input.Reset()
	m.state = StateThinking

	return m, tea.Batch(m.spinner.Tick, m.startAsk(question))
}

// rememberQuestion appends to the Up/Down history, dropping the oldest
// entries past the cap, and parks the recall cursor past the newest
// entry.
func (m *Model) rememberQuestion(question string) {
	m.history = append(m.history, question)
	if excess := len(m.history) - maxHistory; excess > 0 {
		m.history = m.history[excess:]
	}
	m.historyIdx = len(m.history)
}

func (m *Model) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	switch cmd {
	case cmdHelp:
		m.addMessage(Message{Role: roleSystem, Text: slashHelp})
	case cmdClear:
		m.messages = nil
	case cmdExit, cmdQuit:
		return m, m.cleanup()
	default:
		m.addMessage(Message{Role: roleError, Text: "Unknown command: " + cmd})
	}
	m.input.Reset()
	return m, nil
}

// navigateHistory recalls earlier questions into the prompt. delta -1
// walks back, +1 walks forward; walking past the newest entry leaves
// the prompt empty.
func (m *Model) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(m.history) == 0 {
		return m, nil
	}

	m.historyIdx = min(max(m.historyIdx+delta, 0), len(m.history))
	if m.historyIdx == len(m.history) {
		m.input.SetValue("")
		return m, nil
	}
	m.input.SetValue(m.history[m.historyIdx])
	m.input.CursorEnd()
	return m, nil
}

// cancelAsk aborts the in-flight question, if any.
func (m *Model) cancelAsk() {
	if m.askCancel != nil {
		m.askCancel()
		m.askCancel = nil
	}
}

// cleanup cancels everything and returns the quit command.
func (m *Model) cleanup() tea.Cmd {
	if m.ctxCancel != nil {
		m.ctxCancel()
		m.ctxCancel = nil
	}
	// The question context is a child and may already be canceled
	m.cancelAsk()
	m.askEventCh = nil
	return tea.Quit
}
