// Package tui implements the interactive terminal chat built on Bubble
// Tea. The transcript scrolls in a viewport above a textarea prompt;
// answers come from the RAG engine with article citations attached.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/kavi0/sherpa/internal/rag"
)

// Engine answers support questions. *rag.Engine satisfies this.
type Engine interface {
	Query(ctx context.Context, question string, topK int, includeSources bool) (rag.Result, error)
}

// State tracks what the UI is waiting on.
type State int

const (
	// StateInput accepts typing in the prompt.
	StateInput State = iota
	// StateThinking means a question is in flight.
	StateThinking
)

// The transcript and the Up/Down history are capped so long sessions
// cannot grow without bound.
const (
	maxMessages = 100
	maxHistory  = 100
)

// askTimeout bounds a single question. Retrieval plus one model call
// finishes well inside this.
const askTimeout = 2 * time.Minute

// Message roles, which pick the prefix and style on display.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"
	roleError     = "error"
)

// chromeRows counts the rows around the viewport that never scroll:
// two separators, the prompt row, and the help bar.
const chromeRows = 4

// minViewportRows keeps a sliver of transcript visible on tiny
// terminals.
const minViewportRows = 3

// Message is one transcript entry.
type Message struct {
	Role    string
	Text    string
	Sources []rag.Source // article citations, assistant messages only
}

// Model is the Bubble Tea model for the sherpa chat interface.
type Model struct {
	engine Engine

	// ctx is the program context handed to tea.WithContext; ctxCancel
	// tears everything down on exit.
	ctx       context.Context
	ctxCancel context.CancelFunc

	state     State
	lastCtrlC time.Time

	// Prompt and question history for Up/Down recall.
	input      textarea.Model
	history    []string
	historyIdx int

	// Transcript rendering.
	messages []Message
	viewport viewport.Model
	spinner  spinner.Model
	frame    strings.Builder // reused by View between renders
	markdown *markdownRenderer
	styles   Styles

	// Help bar.
	help help.Model
	keys keyMap

	// In-flight question. Bubble Tea's event loop provides the
	// synchronization; a single event channel carries the one answer.
	askCancel  context.CancelFunc
	askEventCh <-chan askEvent

	width  int
	height int
}

// addMessage appends to the transcript, dropping the oldest entries
// past the cap.
func (m *Model) addMessage(msg Message) {
	m.messages = append(m.messages, msg)
	if excess := len(m.messages) - maxMessages; excess > 0 {
		m.messages = m.messages[excess:]
	}
}

// New creates a Model for chat interaction. ctx must be the same
// context later passed to tea.WithContext so cancellation lines up.
func New(ctx context.Context, engine Engine) (*Model, error) {
	if engine == nil {
		return nil, errors.New("tui.New: engine is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Model{
		engine:    engine,
		ctx:       ctx,
		ctxCancel: cancel,
		input:     newPromptArea(),
		spinner:   newThinkingSpinner(),
		viewport:  newTranscriptViewport(),
		help:      help.New(),
		keys:      newKeyMap(),
		styles:    DefaultStyles(),
		history:   make([]string, 0, maxHistory),
		markdown:  newMarkdownRenderer(fallbackWrapWidth),
		width:     fallbackWrapWidth, // until the first WindowSizeMsg
	}, nil
}

// newPromptArea builds the single-line textarea prompt. Enter submits;
// Shift+Enter inserts a newline.
func newPromptArea() textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about Typeform..."
	ta.SetHeight(1)
	ta.SetWidth(120) // resized on the first WindowSizeMsg
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	// Plain text on the terminal background, gray placeholder
	plain := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{Focused: plain, Blurred: plain})
	ta.Focus()
	return ta
}

func newThinkingSpinner() spinner.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return sp
}

// newTranscriptViewport builds the scrollable transcript area.
// Built-in key handling is off; handleKey routes PgUp/PgDn itself so
// the arrow keys stay free for history recall.
func newTranscriptViewport() viewport.Model {
	vp := viewport.New(viewport.WithWidth(fallbackWrapWidth), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}
	return vp
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.input.Focus())
}
