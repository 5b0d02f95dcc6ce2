package picovec

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with picovec-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogBuildIndex logs an index build.
func (l *Logger) LogBuildIndex(k, maxIters, count int, err error) {
	if err != nil {
		l.Error("index build failed",
			"clusters", k,
			"max_iters", maxIters,
			"vectors", count,
			"error", err,
		)
	} else {
		l.Info("index built",
			"clusters", k,
			"max_iters", maxIters,
			"vectors", count,
		)
	}
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(op, path string, count int, err error) {
	if err != nil {
		l.Error("snapshot "+op+" failed",
			"path", path,
			"error", err,
		)
	} else {
		l.Info("snapshot "+op+" completed",
			"path", path,
			"vectors", count,
		)
	}
}
