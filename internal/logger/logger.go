package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const redacted = "[REDACTED]"

// sensitiveKeys are attribute keys whose values never reach the log output.
var sensitiveKeys = map[string]struct{}{
	"encryption_key":  {},
	"pseudonym_salt":  {},
	"password":        {},
	"holder_name":     {},
	"passport_number": {},
	"original":        {},
}

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// Initialize sets up the global logger writing to stdout.
func Initialize(level, format string) {
	InitializeWithWriter(os.Stdout, level, format)
}

// InitializeWithWriter sets up the global logger writing to w.
func InitializeWithWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redact,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func redact(groups []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

// Get returns the default logger
func Get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Initialize("info", "text")
		mu.RLock()
		l = defaultLogger
		mu.RUnlock()
	}
	return l
}

func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	Get().DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	Get().WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// WithComponent returns a logger tagged with the owning component (ledger, loan, ...).
func WithComponent(name string) *slog.Logger {
	return Get().With("component", name)
}

// trace logs msg with the fixed leading attributes followed by the caller's.
func trace(level slog.Level, msg string, lead []any, args []any) {
	Get().Log(context.Background(), level, msg, append(lead, args...)...)
}

// resultLevel picks the level for a completed call: debug on success, failLevel otherwise.
func resultLevel(err error, failLevel slog.Level) slog.Level {
	if err != nil {
		return failLevel
	}
	return slog.LevelDebug
}

// EnterMethod and ExitMethod bracket service and repository methods at debug level.
func EnterMethod(methodName string, args ...any) {
	trace(slog.LevelDebug, "→ Method entered", []any{"method", methodName, "event", "enter"}, args)
}

func ExitMethod(methodName string, args ...any) {
	trace(slog.LevelDebug, "← Method exited", []any{"method", methodName, "event", "exit"}, args)
}

func ExitMethodWithError(methodName string, err error, args ...any) {
	trace(slog.LevelError, "← Method exited with error", []any{"method", methodName, "event", "exit", "error", err}, args)
}

// DatabaseCall logs the statement about to run.
func DatabaseCall(operation, query string, args ...any) {
	trace(slog.LevelDebug, "→ Database call", []any{"operation", operation, "query", query}, args)
}

func DatabaseResult(operation string, rowsAffected int64, err error, args ...any) {
	lead := []any{"operation", operation, "rows_affected", rowsAffected}
	msg := "← Database call succeeded"
	if err != nil {
		lead, msg = append(lead, "error", err), "← Database call failed"
	}
	trace(resultLevel(err, slog.LevelError), msg, lead, args)
}

// ExternalServiceCall logs a call to an external dependency such as redis. Failures are
// reported at warn level since every such dependency is optional.
func ExternalServiceCall(service, operation string, args ...any) {
	trace(slog.LevelDebug, "→ External service call", []any{"service", service, "operation", operation}, args)
}

func ExternalServiceResult(service, operation string, err error, args ...any) {
	lead := []any{"service", service, "operation", operation}
	msg := "← External service call succeeded"
	if err != nil {
		lead, msg = append(lead, "error", err), "← External service call failed"
	}
	trace(resultLevel(err, slog.LevelWarn), msg, lead, args)
}
