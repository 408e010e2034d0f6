// Package log centralizes slog setup for the campaign workflow engine,
// standardizing on the teacher's newer structured-logging generation
// rather than its legacy logrus-based one.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a process-wide slog default handler at the given
// level ("debug", "info", "warn", "error"; defaults to info).
func Setup(level string) {
	var lvl slog.Level

	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})))
}

// WithModule returns a logger scoped to the given module name, the
// engine-wide convention for contextualizing log lines.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
