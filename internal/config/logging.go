package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a configured level name to a slog level.
// DEBUG in the environment forces debug output.
func ParseLevel(level string) slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger. The level is read through levelVar
// so a config reload can change it in place.
func NewLogger(w io.Writer, cfg LoggingConfig, levelVar *slog.LevelVar) *slog.Logger {
	levelVar.Set(ParseLevel(cfg.Level))

	format := cfg.Format
	if env := os.Getenv("LOG_FORMAT"); env != "" {
		format = env
	}

	opts := &slog.HandlerOptions{Level: levelVar}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}
