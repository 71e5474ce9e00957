package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger. Production writes JSON, anything else
// writes text. level accepts slog level names (debug, info, warn, error, also
// offsets like "debug+2"); unknown or empty values fall back to info.
func NewLogger(env, level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if env == "production" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", "apao")
}
