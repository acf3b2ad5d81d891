package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// New creates a zerolog.Logger writing to w.
// format "json" emits one JSON object per line; anything else uses the console writer.
// Invalid levels default to info.
func New(w io.Writer, level, format string) zerolog.Logger {
	out := w
	if strings.ToLower(strings.TrimSpace(format)) != "json" {
		out = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel converts a string log level to a zerolog.Level.
// Valid levels: "debug", "info", "warn", "error" (case-insensitive).
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
