package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON output so log shippers can index the
// structured fields the services attach.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
