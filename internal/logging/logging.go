// Package logging provides structured logging using Go's slog package.
//
// Loggers are built from an explicit Config and passed to the components
// that need them; nothing here installs a process-wide default.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// LoggerKey is the context key for a request-scoped logger.
	LoggerKey ContextKey = "logger"
)

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// Config describes how a logger is built.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to os.Stderr
}

// ParseLevel converts a level name ("debug", "info", "warn", "error").
// Unknown names map to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat converts a format name ("json", "text").
func ParseFormat(name string) Format {
	if strings.EqualFold(strings.TrimSpace(name), "text") {
		return FormatText
	}
	return FormatJSON
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger from cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level.slogLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, l)
}

// FromContext returns the context logger, or fallback when none is attached.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return OrDiscard(fallback)
}

// Helper functions for common logging patterns

// Statement logs an executed SQL statement at debug level.
func Statement(l *slog.Logger, operation, table, sql string, args ...any) {
	allArgs := []any{
		"operation", operation,
		"table", table,
		"sql", sql,
	}
	allArgs = append(allArgs, args...)
	l.Debug("sql_statement", allArgs...)
}

// StorageError logs a failure reported by the database engine.
func StorageError(l *slog.Logger, operation, table string, err error, args ...any) {
	allArgs := []any{
		"operation", operation,
		"table", table,
		"error", err.Error(),
	}
	allArgs = append(allArgs, args...)
	l.Error("storage_error", allArgs...)
}

// IndexEvent logs spatial index lifecycle events.
func IndexEvent(l *slog.Logger, event, table, column string, args ...any) {
	allArgs := []any{
		"event", event,
		"table", table,
		"column", column,
	}
	allArgs = append(allArgs, args...)
	l.Info("index_event", allArgs...)
}

// Transaction logs transaction boundaries at debug level.
func Transaction(l *slog.Logger, event string, args ...any) {
	allArgs := []any{"event", event}
	allArgs = append(allArgs, args...)
	l.Debug("transaction", allArgs...)
}
