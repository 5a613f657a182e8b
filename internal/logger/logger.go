// Package logger wires zerolog for the CLI, the HTTP server and the rate provider.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger.
type ContextKey string

// LoggerKey is the context key for the logger instance.
const LoggerKey ContextKey = "logger"

// New creates a console logger on stderr at the given level ("debug", "info", "warn", ...).
// Unknown levels fall back to info. Stdout is left to command output.
func New(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithContext adds the logger to the context.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context.
// Without one, logging is disabled so library callers stay silent.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithFields adds structured fields to a logger.
func WithFields(logger zerolog.Logger, fields map[string]any) zerolog.Logger {
	c := logger.With()
	for k, v := range fields {
		c = c.Interface(k, v)
	}
	return c.Logger()
}
