package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures logging behavior.
type Options struct {
	Level  string
	Format string
	// File, when set, receives a copy of every record in append mode.
	File string
	// Output overrides stdout; used by tests.
	Output io.Writer
}

// NewLogger builds a slog.Logger writing to Output (stdout by default).
func NewLogger(options Options) *slog.Logger {
	out := options.Output
	if out == nil {
		out = os.Stdout
	}
	return build(out, options)
}

// Open builds a logger that also appends to options.File. The returned
// close func releases the file and is safe to call when no file was opened.
func Open(options Options) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }
	if options.File == "" {
		return NewLogger(options), noop, nil
	}

	file, err := os.OpenFile(options.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("open log file: %w", err)
	}

	out := options.Output
	if out == nil {
		out = os.Stdout
	}
	return build(io.MultiWriter(out, file), options), file.Close, nil
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func build(out io.Writer, options Options) *slog.Logger {
	handlerOptions := &slog.HandlerOptions{Level: ParseLevel(options.Level)}
	if strings.ToLower(options.Format) == "json" {
		return slog.New(slog.NewJSONHandler(out, handlerOptions))
	}
	return slog.New(slog.NewTextHandler(out, handlerOptions))
}
