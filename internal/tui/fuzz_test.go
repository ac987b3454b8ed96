package tui

import (
	"strings"
	"testing"
	"unicode/utf8"

	tea "charm.land/bubbletea/v2"
)

// FuzzModel_HandleSlashCommand checks that arbitrary slash input never
// panics and that the known commands keep their contracts.
func FuzzModel_HandleSlashCommand(f *testing.F) {
	seeds := []string{
		cmdHelp, cmdClear, cmdExit, cmdQuit,
		"/", "//", "/h", "/HELP",
		"/clear everything please",
		"/exit\nnow",
		"/ask how do I publish my form",
		"/" + strings.Repeat("x", 500),
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, cmd string) {
		if !strings.HasPrefix(cmd, "/") {
			return
		}

		m := newTestModel(nil)
		m.messages = []Message{{Role: roleUser, Text: "seed"}}

		model, teaCmd := m.handleSlashCommand(cmd)
		result := model.(*Model)

		switch cmd {
		case cmdExit, cmdQuit:
			if teaCmd == nil {
				t.Errorf("%s returned no quit command", cmd)
			}
		case cmdClear:
			if len(result.messages) != 0 {
				t.Errorf("%s left %d messages", cmd, len(result.messages))
			}
		}
	})
}

// FuzzModel_NavigateHistory checks the recall index stays inside
// [0, len(history)] for any delta.
func FuzzModel_NavigateHistory(f *testing.F) {
	for _, d := range []int{0, 1, -1, 2, -3, 50, -50, 1 << 30, -(1 << 30)} {
		f.Add(d)
	}

	f.Fuzz(func(t *testing.T, delta int) {
		m := newTestModel(nil)
		m.history = []string{"how do I publish", "custom domains", "close a form"}
		m.historyIdx = 2

		model, _ := m.navigateHistory(delta)
		result := model.(*Model)

		if result.historyIdx < 0 || result.historyIdx > len(result.history) {
			t.Errorf("historyIdx = %d out of range [0, %d]", result.historyIdx, len(result.history))
		}
	})
}

// FuzzModel_AddMessage checks the transcript cap holds for any role and
// content.
func FuzzModel_AddMessage(f *testing.F) {
	f.Add(roleUser, "how do I share a form")
	f.Add(roleAssistant, "Use the Share panel.")
	f.Add(roleSystem, "(Canceled)")
	f.Add(roleError, "generating answer")
	f.Add("", "")
	f.Add("moderator", "not a real role")
	f.Add(roleUser, strings.Repeat("?", 20000))
	f.Add(roleUser, "first line\nsecond line")
	f.Add(roleUser, "accents: café, 表單")
	f.Add(roleUser, "\x00\x7f")

	f.Fuzz(func(t *testing.T, role, text string) {
		m := newTestModel(nil)
		for range maxMessages {
			m.addMessage(Message{Role: roleUser, Text: "filler"})
		}

		m.addMessage(Message{Role: role, Text: text})

		if len(m.messages) != maxMessages {
			t.Errorf("transcript length = %d, want %d", len(m.messages), maxMessages)
		}
		if last := m.messages[len(m.messages)-1]; last.Role != role || last.Text != text {
			t.Error("newest entry was dropped instead of the oldest")
		}
	})
}

// FuzzModel_KeyPress checks the key handler never panics for arbitrary
// code and modifier combinations.
func FuzzModel_KeyPress(f *testing.F) {
	f.Add(int32('a'), int(0))
	f.Add(int32('c'), int(tea.ModCtrl))
	f.Add(int32('d'), int(tea.ModCtrl))
	f.Add(int32(tea.KeyEnter), int(0))
	f.Add(int32(tea.KeyEnter), int(tea.ModShift))
	f.Add(int32(tea.KeyUp), int(0))
	f.Add(int32(tea.KeyDown), int(0))
	f.Add(int32(tea.KeyEscape), int(0))
	f.Add(int32(tea.KeyPgUp), int(0))
	f.Add(int32(tea.KeyPgDown), int(0))
	f.Add(int32(tea.KeyTab), int(tea.ModAlt))

	f.Fuzz(func(t *testing.T, code int32, mod int) {
		m := newTestModel(nil)

		msg := tea.KeyPressMsg(tea.Key{Code: rune(code), Mod: tea.KeyMod(mod)})
		model, _ := m.handleKey(msg)
		if model == nil {
			t.Error("handleKey returned nil model")
		}
	})
}

// FuzzModel_View checks rendering stays panic-free and valid UTF-8 for
// any state and terminal geometry.
func FuzzModel_View(f *testing.F) {
	f.Add(0, 80, 24)
	f.Add(1, 80, 24)
	f.Add(0, 20, 5)
	f.Add(1, 300, 90)
	f.Add(0, 0, 0)
	f.Add(1, -5, -5)
	f.Add(0, 4096, 2)

	f.Fuzz(func(t *testing.T, state, width, height int) {
		m := newTestModel(nil)
		if state == 1 {
			m.state = StateThinking
		}
		m.width = width
		m.height = height
		m.messages = []Message{
			{Role: roleUser, Text: "how do I close my form"},
			{Role: roleAssistant, Text: "Toggle it off under Share."},
		}

		_ = m.View()

		if !utf8.ValidString(m.frame.String()) {
			t.Error("View produced invalid UTF-8")
		}
	})
}

// FuzzMarkdownRenderer_Render checks glamour wrapping never panics and
// always yields valid UTF-8.
func FuzzMarkdownRenderer_Render(f *testing.F) {
	seeds := []string{
		"Answers come from the Help Center.",
		"**Publish** the form first.",
		"1. Open Share\n2. Copy the link",
		"`curl -X POST /api/v1/query`",
		"```json\n{\"question\": \"hi\"}\n```",
		"## Logic jumps",
		"[docs](https://example.com/help)",
		"",
		strings.Repeat("steps ", 3000),
		"mixed 🙂 emoji and 中文",
		"\x01\x02\x03",
		"> quoted\n>> nested",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, markdown string) {
		mr := newMarkdownRenderer(80)
		if mr == nil {
			t.Skip("glamour unavailable")
		}

		out := mr.Render(markdown)
		if !utf8.ValidString(out) {
			t.Error("Render produced invalid UTF-8")
		}
	})
}

// FuzzMarkdownRenderer_UpdateWidth checks width changes never panic and
// invalid widths never take effect.
func FuzzMarkdownRenderer_UpdateWidth(f *testing.F) {
	for _, w := range []int{80, 1, 40, 500, 0, -1, -4096, 1 << 20} {
		f.Add(w)
	}

	f.Fuzz(func(t *testing.T, width int) {
		mr := newMarkdownRenderer(80)
		if mr == nil {
			t.Skip("glamour unavailable")
		}

		updated := mr.UpdateWidth(width)
		if width <= 0 && updated {
			t.Errorf("UpdateWidth(%d) accepted a non-positive width", width)
		}
		if width == 80 && updated {
			t.Error("UpdateWidth(80) reported a change for the same width")
		}
		if updated && mr.width != width {
			t.Errorf("width = %d after successful update to %d", mr.width, width)
		}
	})
}
