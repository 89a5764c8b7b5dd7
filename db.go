package rill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxScanCandidates caps how many store files a directory scan will
// consider, bounding both the errgroup fan-out and the memory a
// pathological directory can cost.
const maxScanCandidates = 1024

// Database owns one directory of rill store files plus the in-memory
// ingest buffers. Ingest and Rotate may run concurrently: Ingest only ever
// takes Database.mu, for the duration of a single PairSet.Push; Rotate
// takes it only for the pointer swap between acc and dump, then does every
// other write/merge/install step unlocked, relying on there being at most
// one rotating goroutine at a time.
type Database struct {
	dir string
	ts  Ts

	mu   sync.Mutex
	acc  *PairSet
	dump *PairSet

	hourly  [hours]*Store
	daily   [days]*Store
	monthly [months]*Store

	opts *Options
}

// Open reads every regular file in dir, places each parseable store in its
// ring slot (keyed by the store's own header ts/quant, not its filename;
// the filename pattern is only used to skip obviously-irrelevant files
// before ever trying to open them), and returns a ready Database. dir is
// created if it does not already exist. A corrupt or unparseable file is
// skipped with a logged warning; it does not abort Open. Two stores
// claiming the same (quant, slot) is an invariant violation: the second is
// rejected and closed.
func Open(dir string, opts *Options) (*Database, error) {
	o := opts.orDefaults()

	if err := os.MkdirAll(dir, 0o775); err != nil {
		return nil, fmt.Errorf("rill: mkdir %s: %w", dir, err)
	}

	db := &Database{
		dir:  dir,
		acc:  NewPairSet(o.AccCap),
		dump: NewPairSet(o.AccCap),
		opts: o,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("rill: readdir %s: %w", dir, err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() || !matchesStorePattern(e.Name()) {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, e.Name()))
		if len(candidates) >= maxScanCandidates {
			break
		}
	}

	stores := make([]*Store, len(candidates))
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(8)
	for i, path := range candidates {
		i, path := i, path
		g.Go(func() error {
			st, err := OpenStore(path)
			if err != nil {
				o.Logger.Warn().Err(err).Str("file", path).Msg("skipping unparseable store on open")
				return nil
			}
			stores[i] = st
			return nil
		})
	}
	_ = g.Wait() // individual failures are logged and skipped, never fatal to Open

	for _, st := range stores {
		if st == nil {
			continue
		}
		if !db.placeInRing(st) {
			o.Logger.Warn().Str("file", st.Path()).Msg("duplicate ring slot on open; rejecting")
			st.Close()
		}
	}
	db.refreshLiveStoreMetrics()

	return db, nil
}

// placeInRing installs st into the ring slot implied by its own (ts, quant)
// header fields. It reports false (without installing) if the slot is
// already occupied.
func (db *Database) placeInRing(st *Store) bool {
	switch st.Quant() {
	case Hour:
		i := slot(st.Ts(), Hour, hours)
		if db.hourly[i] != nil {
			return false
		}
		db.hourly[i] = st
	case Day:
		i := slot(st.Ts(), Day, days)
		if db.daily[i] != nil {
			return false
		}
		db.daily[i] = st
	case Month:
		i := slot(st.Ts(), Month, months)
		if db.monthly[i] != nil {
			return false
		}
		db.monthly[i] = st
	default:
		return false
	}
	return true
}

// Close releases every live store and both pair sets. The Database must
// not be used afterwards.
func (db *Database) Close() error {
	var first error
	note := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for i := range db.hourly {
		if db.hourly[i] != nil {
			note(db.hourly[i].Close())
		}
	}
	for i := range db.daily {
		if db.daily[i] != nil {
			note(db.daily[i].Close())
		}
	}
	for i := range db.monthly {
		if db.monthly[i] != nil {
			note(db.monthly[i].Close())
		}
	}
	return first
}

// Ingest adds (key, val) to the accumulator. It rejects a nil key or nil
// val without touching acc. The hot path only ever blocks on db.mu, which
// Rotate holds for no longer than a pointer swap.
func (db *Database) Ingest(key Key, val Val) bool {
	if key == 0 || val == 0 {
		db.opts.Metrics.IngestBad()
		return false
	}

	db.mu.Lock()
	err := db.acc.Push(key, val)
	db.mu.Unlock()

	if err != nil {
		db.opts.Metrics.IngestBad()
		return false
	}
	db.opts.Metrics.IngestOK()
	return true
}

func (db *Database) refreshLiveStoreMetrics() {
	m := db.opts.Metrics
	if m == nil {
		return
	}
	m.SetLiveStores("hourly", countLive(db.hourly[:]))
	m.SetLiveStores("daily", countLive(db.daily[:]))
	m.SetLiveStores("monthly", countLive(db.monthly[:]))
}

func countLive(ring []*Store) int {
	n := 0
	for _, s := range ring {
		if s != nil {
			n++
		}
	}
	return n
}
