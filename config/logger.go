package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the application logger from LOG_FORMAT and LOG_LEVEL.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel("info")}
	if cfg != nil {
		opts.Level = parseLevel(cfg.LogLevel)
		if cfg.LogFormat == "json" {
			return slog.New(slog.NewJSONHandler(w, opts))
		}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
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
