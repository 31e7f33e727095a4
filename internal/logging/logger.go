package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels accepted by NewLogger and written to the "level" field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFileName is the file created inside the log directory.
const LogFileName = "debug.log"

// sink is the output shared by a logger and every child derived from it.
type sink struct {
	mu   sync.Mutex
	file *os.File
}

// Logger writes JSON lines through log/slog. Child loggers returned by
// With, WithEncounter and WithComponent share the parent's output and add
// their attributes to every line. It is safe for concurrent use.
type Logger struct {
	slog *slog.Logger
	out  *sink
	file *os.File
}

// NewLogger opens {dir}/debug.log for appending. An empty dir logs to stderr.
//
// level is one of DEBUG, INFO, WARN or ERROR (case-insensitive); anything
// else means INFO.
func NewLogger(dir string, level string) (*Logger, error) {
	if dir == "" {
		return NewLoggerWriter(os.Stderr, level), nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := NewLoggerWriter(file, level)
	l.out.file = file
	l.file = file
	return l, nil
}

// NewLoggerWriter returns a Logger writing JSON lines to w. The caller owns w.
func NewLoggerWriter(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})
	return &Logger{slog: slog.New(handler), out: &sink{}}
}

func slogLevel(level string) slog.Level {
	switch ParseLevel(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ParseLevel normalizes a level string to one of the level constants.
// Unknown strings map to LevelInfo.
func ParseLevel(level string) string {
	switch up := strings.ToUpper(strings.TrimSpace(level)); up {
	case LevelDebug, LevelWarn, LevelError:
		return up
	default:
		return LevelInfo
	}
}

// WithEncounter tags every line with encounter_id.
func (l *Logger) WithEncounter(encounterID string) *Logger {
	return l.child(slog.String("encounter_id", encounterID))
}

// WithComponent tags every line with the emitting component, e.g. "turn",
// "rings", "coordinator" or "sqlite".
func (l *Logger) WithComponent(component string) *Logger {
	return l.child(slog.String("component", component))
}

// With adds key/value pairs to every line. Pairs whose key is not a string
// are dropped.
func (l *Logger) With(args ...any) *Logger {
	attrs := make([]any, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			attrs = append(attrs, slog.Any(key, args[i+1]))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	return l.child(attrs...)
}

func (l *Logger) child(attrs ...any) *Logger {
	return &Logger{slog: l.slog.With(attrs...), out: l.out, file: l.file}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Log(context.Background(), slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Log(context.Background(), slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Log(context.Background(), slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Log(context.Background(), slog.LevelError, msg, args...) }

// Close syncs and closes the log file opened by NewLogger. Closing any
// logger in a family closes the shared file; further calls are no-ops.
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.file == nil {
		return nil
	}
	f := l.out.file
	l.out.file = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// NopLogger returns a Logger that discards everything.
func NopLogger() *Logger {
	return &Logger{slog: slog.New(slog.DiscardHandler), out: &sink{}}
}
