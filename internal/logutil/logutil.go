// Package logutil provides the structured logging surface shared by
// codebench's CLI binaries and its library packages: LoggerInterface,
// implemented by SlogLogger (the production backend, JSON via log/slog)
// and BufferLogger (a concurrency-safe test double), plus correlation-ID
// propagation via context.Context so every log line emitted during a run
// can be tied back to that run's ID.
package logutil

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// osExit is a seam so Fatal/FatalContext's os.Exit call can be stubbed in
// tests.
var osExit = os.Exit

// ContextKey is the type of keys logutil stores in a context.Context, to
// avoid collisions with keys set by other packages.
type ContextKey string

// CorrelationIDKey is the context key a run's correlation ID is stored
// under.
const CorrelationIDKey ContextKey = "correlation_id"

// WithCorrelationID attaches a correlation ID to ctx. An ID already
// present is preserved unless a non-empty id is supplied, in which case
// it replaces it; with no existing ID and no id argument, a new UUID is
// generated.
//
//	ctx = logutil.WithCorrelationID(ctx)       // generate one
//	ctx = logutil.WithCorrelationID(ctx, runID) // pin to a known ID
func WithCorrelationID(ctx context.Context, id ...string) context.Context {
	if existingID := GetCorrelationID(ctx); existingID != "" {
		if len(id) == 0 || id[0] == "" {
			return ctx
		}
	}
	if len(id) > 0 && id[0] != "" {
		return context.WithValue(ctx, CorrelationIDKey, id[0])
	}
	return context.WithValue(ctx, CorrelationIDKey, uuid.New().String())
}

// WithCustomCorrelationID pins ctx's correlation ID to id, overriding any
// ID already present. An empty id behaves as in WithCorrelationID.
func WithCustomCorrelationID(ctx context.Context, id string) context.Context {
	return WithCorrelationID(ctx, id)
}

// GetCorrelationID retrieves the correlation ID from ctx, or "" if ctx is
// nil or carries none.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, ok := ctx.Value(CorrelationIDKey).(string)
	if !ok {
		return ""
	}
	return id
}

// LoggerInterface is the logging dependency injected into the
// orchestrator and its drivers (sandbox, compiler, test, lint). Every
// method is safe to call concurrently from Attempts dispatched in
// parallel.
type LoggerInterface interface {
	// Context-aware methods fold the context's correlation ID (if any)
	// into the emitted record. msg is a format string and args are its
	// fmt.Sprintf arguments; SlogLogger instead treats args as structured
	// attributes when the first one is a slog.Attr:
	//   logger.InfoContext(ctx, "sandbox acquired", slog.String("language", "rust"))
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
	FatalContext(ctx context.Context, msg string, args ...any)

	// Format-string methods, for call sites with no context to hand.
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	Fatal(format string, v ...interface{})

	Println(v ...interface{})
	Printf(format string, v ...interface{})

	// WithContext returns a logger that folds ctx's correlation ID into
	// every subsequent call.
	WithContext(ctx context.Context) LoggerInterface
}

// LogLevel is the verbosity accepted by the codebench CLIs' --log-level
// flag and by BufferLogger's constructor.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the upper-case level name used in SlogLogger's output
// level field equivalents and in test assertions.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a --log-level flag value ("debug", "info", "warn",
// "error") into a LogLevel.
func ParseLogLevel(level string) (LogLevel, error) {
	switch level {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
