// Package logger provides the small logging interface used across dashgen.
// Packages take a Logger instead of writing to the terminal directly so the
// CLI decides where messages go and tests can capture them.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
)

// DebugEnv is the environment variable that turns on debug output.
const DebugEnv = "DASHGEN_DEBUG"

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// envLogger writes through the standard log package. Debug messages are
// printed when DASHGEN_DEBUG is set or verbose mode was switched on.
type envLogger struct {
	prefix  string
	out     *log.Logger
	verbose atomic.Bool
}

// NewEnvLogger creates a logger that respects the DASHGEN_DEBUG environment variable.
// The prefix is prepended to all log messages (e.g., "[discovery]").
func NewEnvLogger(prefix string) Logger {
	return NewWriterLogger(prefix, os.Stderr)
}

// NewWriterLogger is NewEnvLogger with an explicit destination.
func NewWriterLogger(prefix string, w io.Writer) Logger {
	return &envLogger{prefix: prefix, out: log.New(w, "", log.LstdFlags)}
}

// SetVerbose forces debug output on or off for loggers created by this
// package, regardless of the environment.
func SetVerbose(l Logger, on bool) {
	if el, ok := l.(*envLogger); ok {
		el.verbose.Store(on)
	}
}

func (l *envLogger) line(format string) string {
	if l.prefix == "" {
		return format
	}
	return l.prefix + " " + format
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if l.verbose.Load() || os.Getenv(DebugEnv) != "" {
		l.out.Printf(l.line(format), args...)
	}
}

func (l *envLogger) Info(format string, args ...interface{}) {
	l.out.Printf(l.line(format), args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	l.out.Printf(l.line("WARN: "+format), args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	l.out.Printf(l.line("ERROR: "+format), args...)
}

type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing. It is safe for use from
// several goroutines since discovery fetches run concurrently.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewEnvLogger("")
)

// Default returns the package-level logger.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the package-level logger.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
