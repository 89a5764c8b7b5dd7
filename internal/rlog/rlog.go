// Package rlog is rill's structured-logging side channel.
//
// The core never surfaces errors through logging alone (every fallible
// call still returns an error), but failures the caller can't otherwise
// see, such as a corrupt file skipped on Open or a ring occupant expired
// during rotation, still need to go somewhere human-readable. This wraps
// github.com/rs/zerolog with one package-level logger, Init to configure
// it, and named child loggers per component.
package rlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance used when a Database is not given
// its own via Options.Logger.
var Logger zerolog.Logger

func init() {
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Config configures the package-level Logger.
type Config struct {
	JSON   bool
	Output io.Writer
	Level  zerolog.Level
}

// Init (re)configures the global Logger. Safe to call more than once.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.JSON {
		Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(cfg.Level)
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
