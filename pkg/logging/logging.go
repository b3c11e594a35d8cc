// Package logging configures colored structured logging with tint.
//
// Usage:
//
//	logging.Setup(os.Stderr, "info", false)
//	logger := logging.New(os.Stderr, "debug", true)
//
// The level comes from the merged configuration (LOG_LEVEL or log_level).
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// ParseLevel maps debug, info, warn and error to slog levels.
// Unknown names yield INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a tint logger writing to w at the named level.
// Colors are disabled when w is not a terminal.
func New(w io.Writer, level string, addSource bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      ParseLevel(level),
		TimeFormat: time.Kitchen,
		AddSource:  addSource,
		NoColor:    !isTerminal(w),
	}))
}

// Setup installs New(w, level, addSource) as the default logger and returns it.
func Setup(w io.Writer, level string, addSource bool) *slog.Logger {
	logger := New(w, level, addSource)
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && isatty.IsTerminal(f.Fd())
}
