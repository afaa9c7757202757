// Package logger builds the zerolog loggers used across xlink.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger at the given level. When pretty is set the output is
// a human readable console stream, otherwise one JSON object per line.
func New(level string, pretty bool) zerolog.Logger {
	var out io.Writer = os.Stdout
	if pretty {
		out = ConsoleWriter(os.Stdout)
	}
	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// ConsoleWriter is the development writer: short timestamps, colored levels.
func ConsoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
}

// ParseLevel maps a textual level onto zerolog. Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component derives a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Default is the logger used by the library when the caller provides none.
// Library users rarely want the SDK chatting on stdout, so it stays at warn.
func Default() zerolog.Logger {
	return zerolog.New(ConsoleWriter(os.Stderr)).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()
}
