// Package logging initialises the global zerolog logger used by the CLI and the
// dashboard server.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. An unknown level falls back to info.
// When pretty is set the output is a human readable console writer on stderr.
func Init(level string, pretty bool) zerolog.Logger {
	return InitWriter(os.Stderr, level, pretty)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	log.Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return log.Logger
}
