package logger

import (
	"log/slog"
	"os"
)

// New returns the shared structured JSON logger. Level defaults to info;
// IDSYNC_LOG_DEBUG=true lowers it for troubleshooting.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("IDSYNC_LOG_DEBUG") == "true" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
