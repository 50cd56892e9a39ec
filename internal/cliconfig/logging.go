package cliconfig

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger returns the CLI logger writing to stderr. Quiet keeps warnings and
// errors, verbose adds debug output.
func (c *Config) Logger() zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case c.Quiet:
		level = zerolog.WarnLevel
	case c.Verbose:
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}
