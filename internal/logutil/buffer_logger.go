package logutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// LogEntry is one line captured by a BufferLogger, tagged with the
// correlation ID (if any) active on the logger or context that issued
// the call.
type LogEntry struct {
	Message       string
	CorrelationID string
}

// bufferState is the storage a BufferLogger and every logger derived
// from it via WithContext share, so logging through either handle is
// visible to both.
type bufferState struct {
	mu      sync.Mutex
	entries []LogEntry
}

// BufferLogger is a LoggerInterface implementation that captures log
// lines in memory instead of writing them anywhere, so tests can assert
// on what the orchestrator and its drivers logged during a run without
// scraping stdout.
type BufferLogger struct {
	state  *bufferState
	prefix string
	level  LogLevel
	ctx    context.Context
}

// NewBufferLogger creates a buffer logger that discards any call below
// level.
func NewBufferLogger(level LogLevel) *BufferLogger {
	return &BufferLogger{
		state: &bufferState{},
		level: level,
		ctx:   context.Background(),
	}
}

func (l *BufferLogger) capture(min LogLevel, tag, format string, args []interface{}, correlationID string) {
	if l.level > min {
		return
	}
	msg := fmt.Sprintf("[%s] %s%s", tag, l.prefix, fmt.Sprintf(format, args...))
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.entries = append(l.state.entries, LogEntry{Message: msg, CorrelationID: correlationID})
}

// Debug logs a debug message.
func (l *BufferLogger) Debug(format string, args ...interface{}) {
	l.capture(DebugLevel, "DEBUG", format, args, GetCorrelationID(l.ctx))
}

// Info logs an info message.
func (l *BufferLogger) Info(format string, args ...interface{}) {
	l.capture(InfoLevel, "INFO", format, args, GetCorrelationID(l.ctx))
}

// Warn logs a warning message.
func (l *BufferLogger) Warn(format string, args ...interface{}) {
	l.capture(WarnLevel, "WARN", format, args, GetCorrelationID(l.ctx))
}

// Error logs an error message.
func (l *BufferLogger) Error(format string, args ...interface{}) {
	l.capture(ErrorLevel, "ERROR", format, args, GetCorrelationID(l.ctx))
}

// Fatal logs a fatal message. It never calls os.Exit - the buffer
// logger is a test double, not a production sink.
func (l *BufferLogger) Fatal(format string, args ...interface{}) {
	l.capture(ErrorLevel, "FATAL", format, args, GetCorrelationID(l.ctx))
}

// Println implements LoggerInterface by logging at info level.
func (l *BufferLogger) Println(v ...interface{}) {
	l.Info(fmt.Sprintln(v...))
}

// Printf implements LoggerInterface by logging at info level.
func (l *BufferLogger) Printf(format string, v ...interface{}) {
	l.Info(format, v...)
}

// GetLogs returns all captured log messages, oldest first.
func (l *BufferLogger) GetLogs() []string {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	logs := make([]string, len(l.state.entries))
	for i, e := range l.state.entries {
		logs[i] = e.Message
	}
	return logs
}

// GetLogsAsString joins all captured log messages with newlines.
func (l *BufferLogger) GetLogsAsString() string {
	return strings.Join(l.GetLogs(), "\n")
}

// GetLogEntries returns all captured entries, including the correlation
// ID each call carried, oldest first.
func (l *BufferLogger) GetLogEntries() []LogEntry {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	entries := make([]LogEntry, len(l.state.entries))
	copy(entries, l.state.entries)
	return entries
}

// GetAllCorrelationIDs returns the distinct non-empty correlation IDs
// seen across all captured entries, in first-seen order.
func (l *BufferLogger) GetAllCorrelationIDs() []string {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, e := range l.state.entries {
		if e.CorrelationID == "" || seen[e.CorrelationID] {
			continue
		}
		seen[e.CorrelationID] = true
		ids = append(ids, e.CorrelationID)
	}
	return ids
}

// ClearLogs clears all captured log messages.
func (l *BufferLogger) ClearLogs() {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.entries = nil
}

// DebugContext logs a debug message, tagging it with ctx's correlation
// ID.
func (l *BufferLogger) DebugContext(ctx context.Context, format string, args ...interface{}) {
	l.capture(DebugLevel, "DEBUG", format, args, GetCorrelationID(ctx))
}

// InfoContext logs an info message, tagging it with ctx's correlation
// ID.
func (l *BufferLogger) InfoContext(ctx context.Context, format string, args ...interface{}) {
	l.capture(InfoLevel, "INFO", format, args, GetCorrelationID(ctx))
}

// WarnContext logs a warning message, tagging it with ctx's correlation
// ID.
func (l *BufferLogger) WarnContext(ctx context.Context, format string, args ...interface{}) {
	l.capture(WarnLevel, "WARN", format, args, GetCorrelationID(ctx))
}

// ErrorContext logs an error message, tagging it with ctx's correlation
// ID.
func (l *BufferLogger) ErrorContext(ctx context.Context, format string, args ...interface{}) {
	l.capture(ErrorLevel, "ERROR", format, args, GetCorrelationID(ctx))
}

// FatalContext logs a fatal message, tagging it with ctx's correlation
// ID. It never calls os.Exit.
func (l *BufferLogger) FatalContext(ctx context.Context, format string, args ...interface{}) {
	l.capture(ErrorLevel, "FATAL", format, args, GetCorrelationID(ctx))
}

// WithContext returns a logger that tags subsequent calls with ctx's
// correlation ID. The returned logger shares this logger's captured
// entries, so assertions against either handle see the same log.
func (l *BufferLogger) WithContext(ctx context.Context) LoggerInterface {
	return &BufferLogger{
		state:  l.state,
		level:  l.level,
		prefix: l.prefix,
		ctx:    ctx,
	}
}
