// Package logger is the process-wide structured logger. Output goes to stderr
// as logfmt-style text unless GRAPHCOL_LOG_FORMAT=json.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	current atomic.Pointer[slog.Logger]
	level   = new(slog.LevelVar)
)

func init() {
	level.Set(slog.LevelInfo)
	if os.Getenv("GRAPHCOL_DEBUG") == "true" {
		level.Set(slog.LevelDebug)
	}

	if err := Configure(os.Stderr, os.Getenv("GRAPHCOL_LOG_FORMAT")); err != nil {
		Configure(os.Stderr, "text")
		Warn("falling back to text logs", "error", err)
	}
}

// Configure replaces the output and format ("text" or "json") of the logger.
func Configure(w io.Writer, format string) error {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", format)
	}

	current.Store(slog.New(handler))
	return nil
}

// SetLevel changes the minimum level by name (debug, info, warn, error).
func SetLevel(name string) error {
	switch strings.ToLower(name) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level %q", name)
	}
	return nil
}

func Debug(msg string, args ...any) {
	current.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	current.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	current.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	current.Load().Error(msg, args...)
}

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, args ...any) {
	current.Load().Error(msg, args...)
	os.Exit(1)
}
