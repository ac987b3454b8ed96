// Package log sets up the structured logging shared by every sherpa
// component.
//
// Loggers are injected rather than global. The entrypoint builds one
// with New and each component receives a narrowed child through
// logger.With("component", ...). Tests either silence output with
// NewNop or capture it through NewWithWriter:
//
//	var buf bytes.Buffer
//	logger := log.NewWithWriter(&buf, log.Config{Level: slog.LevelDebug})
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger aliases *slog.Logger so constructors can name the dependency
// without a wrapper interface. Callers keep the full slog surface,
// including With and WithGroup.
type Logger = *slog.Logger

// Config selects the handler and verbosity for a new logger.
type Config struct {
	// Level is the minimum level that gets emitted. The zero value is
	// slog.LevelInfo.
	Level slog.Level

	// JSON switches from the text handler to the JSON handler.
	JSON bool

	// AddSource records the file:line of each call site.
	AddSource bool
}

// New returns a logger writing to os.Stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter returns a logger writing to w. Tests use it to capture
// output in a bytes.Buffer.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a logger that discards everything. Tests only.
func NewNop() Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps a level name from configuration ("debug", "info",
// "warn", "error", case-insensitive) to a slog.Level. Unknown names
// fall back to slog.LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
