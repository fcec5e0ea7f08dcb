package gesture

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig configures the structured logger built by NewLogger.
type LogConfig struct {
	Level  string    `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string    `yaml:"format" toml:"format"` // json, text
	Output io.Writer `yaml:"-" toml:"-"`
}

// NewLogger builds a slog logger from cfg. Defaults are warn level, text
// format and stderr.
func NewLogger(cfg LogConfig) *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h).With("component", "gesture")
}
