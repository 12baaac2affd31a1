package loopmetrics

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
)

// Logger is a printf-style logger such as *log.Logger.
// Wrap one with WrapPrintfLogger to use it with WithLogger.
type Logger interface {
	// Printf logs a formatted message.
	Printf(format string, v ...any)
}

// StructuredLogger provides leveled, key/value logging for the SDK.
// It is satisfied by SlogAdapter and by any logger with the same method set.
//
//	client, _ := loopmetrics.New(
//	    loopmetrics.WithLogger(loopmetrics.NewSlogAdapter(slog.Default())),
//	)
type StructuredLogger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// printfLoggerWrapper wraps a printf-style logger to implement StructuredLogger.
type printfLoggerWrapper struct {
	logger Logger
	debug  bool
}

// WrapPrintfLogger wraps a printf-style Logger (like *log.Logger) to implement
// StructuredLogger. Debug messages are discarded; the other levels are
// prefixed with their name and get the key-value pairs appended.
func WrapPrintfLogger(l Logger) StructuredLogger {
	return &printfLoggerWrapper{logger: l}
}

// WrapStdLogger wraps a standard library *log.Logger.
func WrapStdLogger(l *log.Logger) StructuredLogger {
	return &printfLoggerWrapper{logger: l}
}

func (w *printfLoggerWrapper) Debug(msg string, args ...any) {
	if w.debug {
		w.logger.Printf("[DEBUG] %s%s", msg, formatArgs(args))
	}
}

func (w *printfLoggerWrapper) Info(msg string, args ...any) {
	w.logger.Printf("[INFO] %s%s", msg, formatArgs(args))
}

func (w *printfLoggerWrapper) Warn(msg string, args ...any) {
	w.logger.Printf("[WARN] %s%s", msg, formatArgs(args))
}

func (w *printfLoggerWrapper) Error(msg string, args ...any) {
	w.logger.Printf("[ERROR] %s%s", msg, formatArgs(args))
}

var _ StructuredLogger = (*printfLoggerWrapper)(nil)

// formatArgs formats structured logging arguments as a string.
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	result := " |"
	for i := 0; i+1 < len(args); i += 2 {
		result += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		result += fmt.Sprintf(" %v", args[len(args)-1])
	}
	return result
}

// NopLogger is a logger that discards all log messages.
type NopLogger struct{}

// Printf implements Logger.Printf.
func (NopLogger) Printf(format string, v ...any) {}

// Debug implements StructuredLogger.Debug.
func (NopLogger) Debug(msg string, args ...any) {}

// Info implements StructuredLogger.Info.
func (NopLogger) Info(msg string, args ...any) {}

// Warn implements StructuredLogger.Warn.
func (NopLogger) Warn(msg string, args ...any) {}

// Error implements StructuredLogger.Error.
func (NopLogger) Error(msg string, args ...any) {}

var (
	_ Logger           = NopLogger{}
	_ StructuredLogger = NopLogger{}
)

// SlogAdapter adapts a slog.Logger to the StructuredLogger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter wrapping the given slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Debug implements StructuredLogger.Debug.
func (a *SlogAdapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}

// Info implements StructuredLogger.Info.
func (a *SlogAdapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

// Warn implements StructuredLogger.Warn.
func (a *SlogAdapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

// Error implements StructuredLogger.Error.
func (a *SlogAdapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}

// With returns a new SlogAdapter with the given attributes added.
func (a *SlogAdapter) With(args ...any) *SlogAdapter {
	return &SlogAdapter{logger: a.logger.With(args...)}
}

// newDefaultLogger logs warnings and errors as text to w, or everything
// down to debug when debug is set.
func newDefaultLogger(w io.Writer, debug bool) StructuredLogger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return NewSlogAdapter(slog.New(handler).With("sdk", "loopmetrics"))
}

// MaskAPIKey masks an API key for safe logging, keeping the last 4 characters.
//
//	MaskAPIKey("lm_live_1234567890abcdef") => "********************cdef"
func MaskAPIKey(s string) string {
	const visibleSuffix = 4
	if s == "" {
		return ""
	}
	if len(s) <= visibleSuffix*2 {
		return "****"
	}
	masked := make([]byte, len(s)-visibleSuffix)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + s[len(s)-visibleSuffix:]
}
