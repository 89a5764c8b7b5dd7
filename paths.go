package rill

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// File naming: flat, no subdirectories, one store per (quant, bucket).
// The month field is an unbounded counter of months since the epoch, not
// a wall-clock month-of-year, so names never collide across years.
func monthlyPath(dir string, ts Ts) string {
	return filepath.Join(dir, fmt.Sprintf("%06d.rill", uint64(ts)/uint64(Month)))
}

func dailyPath(dir string, ts Ts) string {
	month := uint64(ts) / uint64(Month)
	day := (uint64(ts) / uint64(Day)) % days
	return filepath.Join(dir, fmt.Sprintf("%06d-%02d.rill", month, day))
}

func hourlyPath(dir string, ts Ts) string {
	month := uint64(ts) / uint64(Month)
	day := (uint64(ts) / uint64(Day)) % days
	hour := (uint64(ts) / uint64(Hour)) % hours
	return filepath.Join(dir, fmt.Sprintf("%06d-%02d-%02d.rill", month, day, hour))
}

var (
	reMonthly = regexp.MustCompile(`^\d{6}\.rill$`)
	reDaily   = regexp.MustCompile(`^\d{6}-\d{2}\.rill$`)
	reHourly  = regexp.MustCompile(`^\d{6}-\d{2}-\d{2}\.rill$`)
)

// matchesStorePattern reports whether name matches one of the three store
// filename shapes. Anything else (including ".tmp" staging files) is
// ignored on open.
func matchesStorePattern(name string) bool {
	return reMonthly.MatchString(name) || reDaily.MatchString(name) || reHourly.MatchString(name)
}
