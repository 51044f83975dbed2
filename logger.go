package seqpack

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with packer-specific helpers.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithWorker adds a worker (rank) field to the logger.
func (l *Logger) WithWorker(rank int) *Logger {
	return &Logger{
		Logger: l.Logger.With("worker", rank),
	}
}

// LogPack logs the outcome of a single Pack call.
func (l *Logger) LogPack(rows, target, leftover int, waste float64, err error) {
	if err != nil {
		l.Error("pack failed",
			"target", target,
			"error", err,
		)
		return
	}
	if rows < target {
		l.Warn("packed batch is short",
			"rows", rows,
			"target", target,
			"leftover_bins", leftover,
		)
		return
	}
	l.Debug("pack completed",
		"rows", rows,
		"leftover_bins", leftover,
		"waste", waste,
	)
}

// LogDrop logs leftover bins discarded because of the leftover cap.
func (l *Logger) LogDrop(bins, tokens int) {
	l.Warn("leftover bins dropped",
		"bins", bins,
		"tokens", tokens,
	)
}

// LogRestore logs a state restore.
func (l *Logger) LogRestore(leftover int, err error) {
	if err != nil {
		l.Error("restore failed",
			"error", err,
		)
		return
	}
	l.Info("packer state restored",
		"leftover_bins", leftover,
	)
}
