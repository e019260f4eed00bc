// Package obslog configures the module's single slog logger, shared by the
// core packages and the cmd/ CLI layer, adapted from the teacher's
// internal/utils/logger.go.
package obslog

import (
	"log/slog"
	"os"
)

var globalLogger *slog.Logger

// Init (re-)configures the global logger. verbose enables debug-level
// output; non-verbose runs stay at Warn and drop the timestamp attribute
// so stderr output stays diffable across runs.
func Init(verbose bool) {
	var level slog.LevelVar
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelWarn)
	}

	opts := &slog.HandlerOptions{
		Level: level.Level(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if !verbose && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}
	globalLogger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(globalLogger)
}

// Logger returns the configured logger, initializing a quiet default one
// on first use if Init was never called (e.g. from tests).
func Logger() *slog.Logger {
	if globalLogger == nil {
		Init(false)
	}
	return globalLogger
}
