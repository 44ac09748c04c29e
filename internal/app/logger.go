package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger from LOG_FORMAT. "json" emits one
// object per line with source locations for log shippers; "pretty" (the
// default) emits plain text for local development. Non-production runs log
// at debug level.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && !cfg.IsProduction() {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: true})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler).With(slog.String("app", "stocklane"))
}
