package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel accepts debug, info, warn, and error in any case.
func ParseLevel(level string) (slog.Level, error) {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return 0, fmt.Errorf("log.level %q is unknown", level)
	}

	return parsed, nil
}

// NewLogHandler builds the slog.Handler described by cfg. Call it on a validated configuration.
func NewLogHandler(w io.Writer, cfg LogConfig) slog.Handler {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: level}

	if cfg.Format == FormatText {
		return slog.NewTextHandler(w, options)
	}

	return slog.NewJSONHandler(w, options)
}
