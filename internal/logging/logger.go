// Package logging holds the process-wide structured logger. Secret material
// must be wrapped in the Secret type before it reaches a log call; see
// redact.go.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// logger always holds a usable instance so log calls before Init still work.
var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// Init reconfigures the global logger at the given level and installs it as
// the slog default. Unknown level names fall back to info.
func Init(level string) {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	slog.SetDefault(logger)
}

// ParseLevel maps a level name to its slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
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

// Logger returns the global logger.
func Logger() *slog.Logger { return logger }

func Debug(msg string, args ...any) { logger.Debug(msg, args...) }
func Info(msg string, args ...any)  { logger.Info(msg, args...) }
func Warn(msg string, args ...any)  { logger.Warn(msg, args...) }
func Error(msg string, args ...any) { logger.Error(msg, args...) }
