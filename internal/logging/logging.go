// Package logging constructs the zerolog loggers canto components receive.
// Loggers are dependency-injected at construction time and scoped with a
// component field; global configuration belongs only in the CLI layer. All
// output goes to stderr so standard output stays a pure JSON stream.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger construction options.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // console writer for interactive use
	Output io.Writer
}

// New creates a logger from the configuration. An unrecognized level falls
// back to warn, keeping the JSON output stream quiet by default.
func New(cfg Config) zerolog.Logger {
	level := zerolog.WarnLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	output := cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// Discard returns a logger that drops everything. Components receiving no
// logger use it as the default.
func Discard() zerolog.Logger {
	return zerolog.Nop()
}
