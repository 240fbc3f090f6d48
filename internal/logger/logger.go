package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ContextKey is a type for context keys used by the logger
type ContextKey string

const (
	// RequestIDKey is the context key for request IDs
	RequestIDKey ContextKey = "request_id"
)

var defaultLogger *slog.Logger

// Init installs the process logger at the given level. Output is JSON when
// ENV=production and human-readable text otherwise.
func Init(levelStr string) {
	Use(New(os.Stdout, levelStr, os.Getenv("ENV") == "production"))
}

// New builds a logger writing to w.
func New(w io.Writer, levelStr string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(levelStr)}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Use replaces the process logger; tests use it to capture output.
func Use(l *slog.Logger) {
	defaultLogger = l
	if l != nil {
		slog.SetDefault(l)
	}
}

// parseLevel converts a string log level to slog.Level
func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the default logger
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init("info")
	}
	return defaultLogger
}

// WithRequestID returns a logger with the request ID from context
func WithRequestID(ctx context.Context) *slog.Logger {
	l := Get()
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		l = l.With("request_id", reqID)
	}
	return l
}

// WithComponent returns a logger with a component label
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

// Debug logs a debug message
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }

// Info logs an info message
func Info(msg string, args ...any) { Get().Info(msg, args...) }

// Warn logs a warning message
func Warn(msg string, args ...any) { Get().Warn(msg, args...) }

// Error logs an error message
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// DebugContext logs a debug message with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Debug(msg, args...)
}

// InfoContext logs an info message with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Info(msg, args...)
}

// WarnContext logs a warning message with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Warn(msg, args...)
}

// ErrorContext logs an error message with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Error(msg, args...)
}
