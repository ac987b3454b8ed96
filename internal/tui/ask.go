package tui

import (
	"context"
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/kavi0/sherpa/internal/rag"
)

// askEvent carries the single outcome of a question. Exactly one of
// result or err is meaningful.
type askEvent struct {
	result rag.Result
	err    error
}

// Ask message types for Bubble Tea.
type askStartedMsg struct {
	eventCh <-chan askEvent
	cancel  context.CancelFunc
}

type askDoneMsg struct {
	result rag.Result
}

type askErrorMsg struct {
	err error
}

// startAsk creates a command that runs the question against the engine.
//
// Goroutine lifecycle: the spawned goroutine exits when Query returns,
// which a cancel() call forces via context. Channel closure signals
// completion; the buffered channel means the final send never blocks
// even if the UI already gave up.
func (m *Model) startAsk(question string) tea.Cmd {
	return func() tea.Msg {
		eventCh := make(chan askEvent, 1)

		// Bound the question so a stuck model call cannot hang the UI
		ctx, cancel := context.WithTimeout(m.ctx, askTimeout)

		go func() {
			// Release timer resources on all exit paths
			defer cancel()
			defer close(eventCh)

			// Panic recovery to prevent TUI lockup
			defer func() {
				if r := recover(); r != nil {
					select {
					case eventCh <- askEvent{err: fmt.Errorf("query panic: %v", r)}:
					default:
					}
				}
			}()

			// Sources always requested: the transcript cites articles
			res, err := m.engine.Query(ctx, question, 0, true)
			if err != nil {
				eventCh <- askEvent{err: err}
				return
			}
			eventCh <- askEvent{result: res}
		}()

		return askStartedMsg{
			eventCh: eventCh,
			cancel:  cancel,
		}
	}
}

// awaitAnswer creates a command that waits for the question's outcome.
func awaitAnswer(eventCh <-chan askEvent) tea.Cmd {
	return func() tea.Msg {
		if eventCh == nil {
			return nil
		}

		event, ok := <-eventCh
		if !ok {
			// Channel closed without an event
			return askErrorMsg{err: errors.New("query ended without a result")}
		}
		if event.err != nil {
			return askErrorMsg{err: event.err}
		}
		return askDoneMsg{result: event.result}
	}
}
