package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a structured slog.Logger with the given level. It
// writes to stderr; stdout carries the per-image result lines.
func NewLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
