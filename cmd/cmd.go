// Package cmd wires the sherpa subcommands.
//
// serve runs the HTTP API. init populates the vector index once. crawl
// pulls live help-center articles. chat opens the terminal UI. mcp
// exposes the engine over the Model Context Protocol. Every command
// shuts down through context cancellation on SIGINT or SIGTERM.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kavi0/sherpa/internal/app"
	"github.com/kavi0/sherpa/internal/config"
	"github.com/kavi0/sherpa/internal/log"
)

// Execute is the main entry point for the sherpa CLI.
func Execute() error {
	// Bootstrap logger until a command loads config and installs the
	// real one. Stderr keeps stdout clean for command output and for
	// the MCP JSON-RPC stream.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "init":
		return runInit()
	case "crawl":
		return runCrawl()
	case "chat":
		return runChat()
	case "mcp":
		return runMCP()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// loadConfig loads the runtime configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config and installs it as
// the slog default. DEBUG overrides the configured level.
func newLogger(cfg *config.Config) log.Logger {
	level := log.ParseLevel(cfg.LogLevel)
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})
	slog.SetDefault(logger)
	return logger
}

// withApp builds the application and runs fn inside a SIGINT/SIGTERM
// cancellation scope. The app is closed after fn returns; shutdown
// errors are logged, not returned.
func withApp(cfg *config.Config, logger log.Logger, fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown error", "error", err)
		}
	}()

	return fn(ctx, a)
}

func runHelp() {
	fmt.Println("Sherpa - Help-center support chatbot")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sherpa serve [addr]     Start HTTP API server (default: 0.0.0.0:8000)")
	fmt.Println("  sherpa init             Initialize the vector index and load bundled articles")
	fmt.Println("  sherpa crawl <url>      Crawl a help center and index the articles found")
	fmt.Println("  sherpa chat             Start interactive terminal chat")
	fmt.Println("  sherpa mcp              Start MCP server (for Claude Desktop/Cursor)")
	fmt.Println("  sherpa version          Show version information")
	fmt.Println("  sherpa help             Show this help")
	fmt.Println()
	fmt.Println("Crawl flags:")
	fmt.Println("  -limit <n>              Stop after n articles (default 25)")
	fmt.Println("  -fetch                  Fetch only the given URLs, do not follow links")
	fmt.Println()
	fmt.Println("Chat commands (in interactive mode):")
	fmt.Println("  /help                   Show available commands")
	fmt.Println("  /clear                  Clear the transcript")
	fmt.Println("  /exit, /quit            Exit sherpa")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  OPENAI_API_KEY          API key when provider is openai (default)")
	fmt.Println("  GEMINI_API_KEY          API key when provider is gemini")
	fmt.Println("  DATABASE_URL            PostgreSQL connection URL")
	fmt.Println("  SHERPA_*                Runtime overrides, see internal/config")
	fmt.Println("  DEBUG                   Enable debug logging")
	fmt.Println()
	fmt.Println("Learn more: https://github.com/kavi0/sherpa")
}
