// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	GlobalLogger = NewLogger(os.Stderr, "info")
}

// NewLogger builds a JSON logger writing to w at the named level.
func NewLogger(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return &Logger{Logger: slog.New(handler)}
}

// SetupLogging replaces GlobalLogger with one at the given level.
func SetupLogging(level string) {
	GlobalLogger = NewLogger(os.Stderr, level)
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
)

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// EnsureCorrelationID returns ctx unchanged if it already carries a
// correlation ID, otherwise a child context with a fresh one.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if ExtractCorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, GenerateCorrelationID())
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// ComposerLogger provides structured logging for one composer session.
type ComposerLogger struct {
	postType string
	logger   *Logger
}

// NewComposerLogger creates a ComposerLogger for the given post type.
func NewComposerLogger(postType string) *ComposerLogger {
	return &ComposerLogger{
		postType: postType,
		logger:   GlobalLogger,
	}
}

// LogTransition logs a tab transition attempt.
func (l *ComposerLogger) LogTransition(ctx context.Context, action string, from, to int, outcome string) {
	l.logger.InfoContext(ctx, "composer transition",
		slog.String("post_type", l.postType),
		slog.String("action", action),
		slog.Int("from_tab", from),
		slog.Int("to_tab", to),
		slog.String("outcome", outcome),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogUpload logs the result of one media slot upload.
func (l *ComposerLogger) LogUpload(ctx context.Context, slot int, fileName string, err error) {
	attrs := []any{
		slog.String("post_type", l.postType),
		slog.Int("slot", slot),
		slog.String("file", fileName),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.logger.ErrorContext(ctx, "composer upload failed", attrs...)
		return
	}
	l.logger.DebugContext(ctx, "composer upload", attrs...)
}

// LogSubmit logs the outcome of a submission.
func (l *ComposerLogger) LogSubmit(ctx context.Context, postID string, synthesized bool, err error) {
	attrs := []any{
		slog.String("post_type", l.postType),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.logger.ErrorContext(ctx, "composer submit failed", attrs...)
		return
	}
	attrs = append(attrs, slog.String("post_id", postID), slog.Bool("synthesized", synthesized))
	if synthesized {
		l.logger.WarnContext(ctx, "composer submit used fallback post", attrs...)
		return
	}
	l.logger.InfoContext(ctx, "composer submit", attrs...)
}

// LogAsyncOperationStart logs the start of an asynchronous operation.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_start"),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "async operation started", attrs...)
}

// LogAsyncOperationEnd logs the completion of an asynchronous operation.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_end"),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "async operation completed", attrs...)
}

// LogAsyncOperationError logs an error in an asynchronous operation.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.ErrorContext(ctx, "async operation failed", attrs...)
}
