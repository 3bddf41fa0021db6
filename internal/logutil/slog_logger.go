package logutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// SlogLogger implements LoggerInterface on top of log/slog, emitting
// structured JSON records. It is the production logger for both
// codebench CLI binaries.
type SlogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

// Ensure SlogLogger implements LoggerInterface
var _ LoggerInterface = (*SlogLogger)(nil)

// NewSlogLogger creates a SlogLogger writing JSON records to writer at
// the given minimum level. A nil writer defaults to os.Stderr.
func NewSlogLogger(writer io.Writer, level slog.Level) *SlogLogger {
	if writer == nil {
		writer = os.Stderr
	}
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	return &SlogLogger{
		logger: slog.New(handler),
		ctx:    context.Background(),
	}
}

// WithContext returns a logger that folds ctx's correlation ID into
// every subsequent call.
func (s *SlogLogger) WithContext(ctx context.Context) LoggerInterface {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SlogLogger{logger: s.logger, ctx: ctx}
}

// Debug logs a message at DEBUG level.
func (s *SlogLogger) Debug(format string, args ...interface{}) {
	s.DebugContext(s.ctx, format, args...)
}

// Info logs a message at INFO level.
func (s *SlogLogger) Info(format string, args ...interface{}) {
	s.InfoContext(s.ctx, format, args...)
}

// Warn logs a message at WARN level.
func (s *SlogLogger) Warn(format string, args ...interface{}) {
	s.WarnContext(s.ctx, format, args...)
}

// Error logs a message at ERROR level.
func (s *SlogLogger) Error(format string, args ...interface{}) {
	s.ErrorContext(s.ctx, format, args...)
}

// Fatal logs a message at ERROR level, then exits the process.
func (s *SlogLogger) Fatal(format string, args ...interface{}) {
	s.FatalContext(s.ctx, format, args...)
}

// record formats msg/args into a message and structured key-value pairs,
// folding in ctx's correlation ID if present. args is treated as
// key/value attribute pairs when its first element is a slog.Attr,
// otherwise as fmt.Sprintf arguments.
func record(ctx context.Context, msg string, args []interface{}) (string, []interface{}) {
	var message string
	var kvPairs []interface{}
	if len(args) > 0 && isAttr(args[0]) {
		message = msg
		kvPairs = args
	} else {
		message = fmt.Sprintf(msg, args...)
	}
	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		kvPairs = append(kvPairs, slog.String("correlation_id", correlationID))
	}
	return message, kvPairs
}

func (s *SlogLogger) resolveContext(ctx context.Context) context.Context {
	if ctx == nil || ctx == context.TODO() || ctx == context.Background() {
		return s.ctx
	}
	return ctx
}

// DebugContext logs a message at DEBUG level, folding in ctx's
// correlation ID. args is either fmt.Sprintf arguments or, when its
// first element is a slog.Attr, structured key-value pairs.
func (s *SlogLogger) DebugContext(ctx context.Context, msg string, args ...interface{}) {
	ctx = s.resolveContext(ctx)
	message, kvPairs := record(ctx, msg, args)
	s.logger.DebugContext(ctx, message, kvPairs...)
}

// InfoContext logs a message at INFO level, folding in ctx's correlation
// ID.
func (s *SlogLogger) InfoContext(ctx context.Context, msg string, args ...interface{}) {
	ctx = s.resolveContext(ctx)
	message, kvPairs := record(ctx, msg, args)
	s.logger.InfoContext(ctx, message, kvPairs...)
}

// WarnContext logs a message at WARN level, folding in ctx's correlation
// ID.
func (s *SlogLogger) WarnContext(ctx context.Context, msg string, args ...interface{}) {
	ctx = s.resolveContext(ctx)
	message, kvPairs := record(ctx, msg, args)
	s.logger.WarnContext(ctx, message, kvPairs...)
}

// ErrorContext logs a message at ERROR level, folding in ctx's
// correlation ID.
func (s *SlogLogger) ErrorContext(ctx context.Context, msg string, args ...interface{}) {
	ctx = s.resolveContext(ctx)
	message, kvPairs := record(ctx, msg, args)
	s.logger.ErrorContext(ctx, message, kvPairs...)
}

// FatalContext logs a message at ERROR level, folding in ctx's
// correlation ID, then exits the process with status 1.
func (s *SlogLogger) FatalContext(ctx context.Context, msg string, args ...interface{}) {
	ctx = s.resolveContext(ctx)
	message, kvPairs := record(ctx, msg, args)
	s.logger.ErrorContext(ctx, message, kvPairs...)
	osExit(1)
}

// isAttr reports whether arg is a slog.Attr (or equivalent), indicating
// the caller passed structured key-value pairs rather than Sprintf
// arguments.
func isAttr(arg interface{}) bool {
	switch arg.(type) {
	case slog.Attr, *slog.Attr, slog.Value:
		return true
	default:
		return fmt.Sprintf("%T", arg) == "slog.Attr"
	}
}

// Println implements LoggerInterface by logging at INFO level.
func (s *SlogLogger) Println(v ...interface{}) {
	s.InfoContext(s.ctx, fmt.Sprintln(v...))
}

// Printf implements LoggerInterface by logging at INFO level.
func (s *SlogLogger) Printf(format string, v ...interface{}) {
	s.InfoContext(s.ctx, format, v...)
}

// ConvertLogLevelToSlog converts a LogLevel to its slog.Level
// equivalent.
func ConvertLogLevelToSlog(level LogLevel) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewSlogLoggerFromLogLevel creates a SlogLogger from the codebench
// CLIs' --log-level flag value.
func NewSlogLoggerFromLogLevel(writer io.Writer, level LogLevel) *SlogLogger {
	return NewSlogLogger(writer, ConvertLogLevelToSlog(level))
}
