package cmd

import (
	"context"
	"fmt"
	"log/slog"

	tea "charm.land/bubbletea/v2"

	"github.com/kavi0/sherpa/internal/app"
	"github.com/kavi0/sherpa/internal/log"
	"github.com/kavi0/sherpa/internal/tui"
)

// runChat starts the interactive chat with the Bubble Tea TUI.
func runChat() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Engine logs share stderr with the TUI; only warnings may break
	// through while it owns the terminal.
	logger := log.New(log.Config{Level: slog.LevelWarn, JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	return withApp(cfg, logger, func(ctx context.Context, a *app.App) error {
		model, err := tui.New(ctx, a.Engine)
		if err != nil {
			return fmt.Errorf("creating TUI: %w", err)
		}

		if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
			return fmt.Errorf("TUI exited: %w", err)
		}
		return nil
	})
}
