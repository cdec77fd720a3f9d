// Package logging provides the debug logger shared by the orchestration packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger provides debug logging for orchestration operations.
// It wraps file-based logging with thread-safe access. A nil *DebugLogger
// is valid and discards everything.
type DebugLogger struct {
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	prefix string
}

// NewDebugLogger creates a logger writing to the specified path.
// If the path is empty, returns a no-op logger.
// Creates parent directories if they don't exist.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := &DebugLogger{out: f, closer: f}
	logger.Log("=== devs debug log started at %s ===", time.Now().Format(time.RFC3339))
	return logger, nil
}

// NewWriterLogger creates a logger writing to w, e.g. os.Stderr for --verbose.
func NewWriterLogger(w io.Writer) *DebugLogger {
	return &DebugLogger{out: w}
}

// NopLogger returns a no-op logger for testing or when logging is disabled.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// With returns a logger that prefixes every message with component.
// The returned logger shares the underlying writer.
func (l *DebugLogger) With(component string) *DebugLogger {
	if l == nil || l.out == nil {
		return l
	}
	return &DebugLogger{out: &lockedWriter{parent: l}, prefix: "[" + component + "] "}
}

// Log writes a timestamped message to the debug log.
// If the logger is nil or has no output, this is a no-op.
func (l *DebugLogger) Log(format string, args ...interface{}) {
	if l == nil || l.out == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(l.out, "[%s] %s%s\n", timestamp, l.prefix, msg)
	if f, ok := l.out.(*os.File); ok && f != os.Stderr && f != os.Stdout {
		f.Sync()
	}
}

// Close closes the log file.
// Safe to call on nil logger or logger without file.
func (l *DebugLogger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.closer.Close()
}

// lockedWriter routes derived loggers through the parent's lock.
type lockedWriter struct {
	parent *DebugLogger
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.parent.mu.Lock()
	defer w.parent.mu.Unlock()
	return w.parent.out.Write(p)
}
