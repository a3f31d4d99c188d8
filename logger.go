package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a JSON slog.Logger at level, tagged with the service
// name.
func NewLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", "weapon-watch")
}
