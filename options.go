package rill

import (
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/psyomn/rill/internal/rlog"
	"github.com/psyomn/rill/internal/rmetrics"
)

// Options configures a Database; the zero value plus Open's internal
// defaulting is fine for normal use.
type Options struct {
	// AccCap is the initial capacity of the ingest accumulator/dump pair
	// sets. Defaults to 1,000,000.
	AccCap int

	// Logger receives the side-channel messages for failures a caller
	// cannot otherwise see (skipped corrupt files, expired ring
	// occupants). nil defaults to rlog.Component("rill").
	Logger *zerolog.Logger

	// Metrics, if non-nil, is fed ingest/rotate counters. nil disables
	// metrics entirely at zero cost.
	Metrics *rmetrics.Metrics
}

// NewOptions builds Options from environment variables under envPrefix
// (default "RILL_"), falling back to defaults for anything unset or
// invalid.
func NewOptions(envPrefix string) *Options {
	if envPrefix == "" {
		envPrefix = "RILL_"
	}
	defaultLogger := rlog.Component("rill")
	opts := &Options{AccCap: 1_000_000, Logger: &defaultLogger}
	if env := os.Getenv(envPrefix + "ACC_CAP"); env != "" {
		if v, err := strconv.Atoi(env); err == nil && v > 0 {
			opts.AccCap = v
		}
	}
	return opts
}

func (o *Options) orDefaults() *Options {
	if o == nil {
		return NewOptions("")
	}
	cp := *o
	if cp.AccCap <= 0 {
		cp.AccCap = 1_000_000
	}
	if cp.Logger == nil {
		l := rlog.Component("rill")
		cp.Logger = &l
	}
	return &cp
}
