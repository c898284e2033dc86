// Package notify provides the transient user-notification surface (toasts).
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"adda/internal/observability"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Level, string) {}

// LogNotifier routes notifications to the structured logger.
type LogNotifier struct {
	logger *observability.Logger
}

// NewLogNotifier creates a LogNotifier on the global logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: observability.GlobalLogger}
}

func (n *LogNotifier) Notify(level Level, message string) {
	attrs := []any{slog.String("level", string(level)), slog.String("message", message)}
	switch level {
	case LevelError:
		n.logger.Error("notification", attrs...)
	case LevelWarning:
		n.logger.Warn("notification", attrs...)
	default:
		n.logger.Info("notification", attrs...)
	}
}

// WriterNotifier prints notifications as "[level] message" lines, for CLIs.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a WriterNotifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "[%s] %s\n", level, message)
}
