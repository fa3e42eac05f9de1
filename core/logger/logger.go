// Package logger configures the process-wide structured logger and exposes
// per-component child loggers used across the bot.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Options control logger initialization. They are derived from the logging
// section of the configuration file by the caller.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is "text" or "json".
	Format string
	// File, when set, duplicates output into the given file.
	File string
}

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	logFile    *os.File

	levelVar slog.LevelVar

	// L is the base logger. It defaults to slog.Default before Init so
	// package-level loggers are always safe to use.
	L = slog.Default()

	// App logs application lifecycle events.
	App = Component("app")
	// TG logs Telegram transport events.
	TG = Component("tg")
	// DB logs database events.
	DB = Component("db")
	// MIG logs schema migration events.
	MIG = Component("db.migrate")
	// Store logs storage layer events.
	Store = Component("store")
	// Flow logs reservation flow transitions.
	Flow = Component("flow")
	// Worker logs background job events.
	Worker = Component("worker")
)

// Init configures the global structured logger. It may be called only once;
// subsequent calls are no-ops returning the first error, if any.
func Init(opts Options) error {
	var initErr error
	initOnce.Do(func() {
		levelVar.Set(parseLevel(opts.Level))

		out := io.Writer(os.Stdout)
		if opts.File != "" {
			if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
				initErr = fmt.Errorf("logger: create log dir: %w", err)
				return
			}
			f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				initErr = fmt.Errorf("logger: open log file: %w", err)
				return
			}
			logFile = f
			out = io.MultiWriter(os.Stdout, f)
		}

		hopts := &slog.HandlerOptions{Level: &levelVar}
		var handler slog.Handler
		if strings.EqualFold(opts.Format, "json") {
			handler = slog.NewJSONHandler(out, hopts)
		} else {
			handler = slog.NewTextHandler(out, hopts)
		}

		L = slog.New(handler)
		slog.SetDefault(L)
		wireComponents()
	})
	return initErr
}

func wireComponents() {
	App = Component("app")
	TG = Component("tg")
	DB = Component("db")
	MIG = Component("db.migrate")
	Store = Component("store")
	Flow = Component("flow")
	Worker = Component("worker")
}

// Component returns a child logger tagged with the given component name.
func Component(name string) *slog.Logger {
	return L.With("component", name)
}

// Shutdown closes the log file if one was opened.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// RoundMS truncates a duration to millisecond precision for log output.
func RoundMS(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

// SanitizeLimit collapses whitespace and truncates s to at most limit runes.
// It keeps log lines single-line and bounded when echoing user input.
func SanitizeLimit(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
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
