// Package logging builds the structured logger used by the CLI.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Options configure New.
type Options struct {
	// Level names the minimum level (debug, info, warn, error). Verbose
	// overrides it with debug.
	Level   string
	Verbose bool
	// JSON selects the JSON handler instead of text.
	JSON bool
}

// New returns a logger writing to w. Warnings and errors are shown by
// default.
func New(w io.Writer, opts Options) *slog.Logger {
	level := ParseLevel(opts.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	ho := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, ho))
	}
	return slog.New(slog.NewTextHandler(w, ho))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps a level name to a slog level, defaulting to warn.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
