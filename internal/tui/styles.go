package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Alpine blue for the sherpa wordmark
const alpineBlue = "#4C9AFF"

// SHERPA wordmark in filled block letters.
var sherpaArt = []string{
	"███████╗██╗  ██╗███████╗██████╗ ██████╗  █████╗ ",
	"██╔════╝██║  ██║██╔════╝██╔══██╗██╔══██╗██╔══██╗",
	"███████╗███████║█████╗  ██████╔╝██████╔╝███████║",
	"╚════██║██╔══██║██╔══╝  ██╔══██╗██╔═══╝ ██╔══██║",
	"███████║██║  ██║███████╗██║  ██║██║     ██║  ██║",
	"╚══════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═╝     ╚═╝  ╚═╝",
}

// Mountain silhouette rendered to the left of the wordmark.
var peakArt = []string{
	"     ██     ",
	"    ████    ",
	"   ██████   ",
	"  ████████  ",
	" ██████████ ",
	"            ",
}

// Styles bundles the lipgloss styles used across the TUI.
type Styles struct {
	Banner    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	Source    lipgloss.Style
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Banner:    fg(alpineBlue).Bold(true),
		User:      fg("86").Bold(true),
		Assistant: fg("212").Bold(true),
		System:    fg("240").Italic(true),
		Tips:      fg("255"), // white so the tips stay readable
		Error:     fg("196"),
		Prompt:    fg("86").Bold(true),
		Separator: fg("240"),
		Source:    fg("244"), // dim citations
	}
}

// RenderBanner returns the mountain-and-wordmark banner.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for i, row := range sherpaArt {
		_, _ = b.WriteString(s.Banner.Render(peakArt[i] + row))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips is shown once under the banner.
var welcomeTips = []string{
	"Tips for getting started:",
	"  • Ask anything about Typeform, answers come from Help Center articles",
	"  • Use /help to see available commands",
	"  • Press Ctrl+C to cancel, Ctrl+D to exit",
	"  • Up/Down arrows navigate question history",
}

// RenderWelcomeTips returns the styled tip block.
func (s Styles) RenderWelcomeTips() string {
	lines := make([]string, len(welcomeTips))
	for i, tip := range welcomeTips {
		lines[i] = s.Tips.Render(tip)
	}
	return strings.Join(lines, "\n") + "\n"
}
