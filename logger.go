package memcube

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/memcube/model"
)

// Logger wraps slog.Logger with consistent field names for store operations.
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

// WithUser adds a user field to the logger.
func (l *Logger) WithUser(id model.UserID) *Logger {
	return &Logger{
		Logger: l.Logger.With("user", string(id)),
	}
}

// WithCube adds a cube field to the logger.
func (l *Logger) WithCube(id model.CubeID) *Logger {
	return &Logger{
		Logger: l.Logger.With("cube", string(id)),
	}
}

// LogAdd logs an ingestion operation.
func (l *Logger) LogAdd(ctx context.Context, cube model.CubeID, inserted int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"cube", string(cube),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"cube", string(cube),
			"inserted", inserted,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, cubes, hits int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"k", k,
			"cubes", cubes,
			"hits", hits,
		)
	}
}

// LogDump logs a snapshot write.
func (l *Logger) LogDump(ctx context.Context, cube model.CubeID, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dump failed",
			"cube", string(cube),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "dump completed",
			"cube", string(cube),
			"records", records,
		)
	}
}

// LogLoad logs a snapshot load.
func (l *Logger) LogLoad(ctx context.Context, cube model.CubeID, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"cube", string(cube),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "load completed",
			"cube", string(cube),
			"records", records,
		)
	}
}
