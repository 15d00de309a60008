package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the service logger. Production uses JSON output for log
// aggregation; anything else gets the human-readable text handler.
func New(env string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(env), "production") {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}

// Init configures the global slog logger and returns it.
func Init(env string) *slog.Logger {
	logger := New(env, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// WithTurn returns a logger scoped to one chat turn.
func WithTurn(logger *slog.Logger, requestID, participantID, sessionID string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(
		"request_id", requestID,
		"prolific_id", participantID,
		"session_id", sessionID,
	)
}
