package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger receives sync events from the scanner, policies and executor.
type Logger interface {
	Transfer(action, src, dst string)
	Skip(src, dst string)
	Warn(message string, args ...any)
	Error(operation, path string, err error)
	Debug(message string, args ...any)
}

// Options describes slog construction parameters.
type Options struct {
	Level  string
	Format string
	Writer io.Writer
}

// New constructs a slog logger writing console text or JSON.
func New(opts Options) (*slog.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

func parseLevel(level string) slog.Level {
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

// SyncLogger writes sync events to a slog logger. Quiet suppresses
// per-file transfer lines; warnings and errors are always written.
type SyncLogger struct {
	Log      *slog.Logger
	IsDryRun bool
	IsQuiet  bool
}

func (l *SyncLogger) Transfer(action, src, dst string) {
	if l.IsQuiet {
		return
	}
	if l.IsDryRun {
		action = "(dryrun) " + action
	}
	l.Log.Info(action, "src", src, "dest", dst)
}

func (l *SyncLogger) Skip(src, dst string) {
	l.Log.Debug("up to date", "src", src, "dest", dst)
}

func (l *SyncLogger) Warn(message string, args ...any) {
	l.Log.Warn(message, args...)
}

func (l *SyncLogger) Error(operation, path string, err error) {
	l.Log.Error(operation+" failed", "path", path, "error", err)
}

func (l *SyncLogger) Debug(message string, args ...any) {
	l.Log.Debug(message, args...)
}

type NullLogger struct{}

func (NullLogger) Transfer(action, src, dst string) {}

func (NullLogger) Skip(src, dst string) {}

func (NullLogger) Warn(message string, args ...any) {}

func (NullLogger) Error(operation, path string, err error) {}

func (NullLogger) Debug(message string, args ...any) {}
