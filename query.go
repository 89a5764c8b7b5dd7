package rill

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// QueryKey fans scan-by-key out across every live store, hourly then
// daily then monthly (order is irrelevant to the result since out is
// compacted afterwards), appending matches into out, then compacts out.
// Tiers can overlap in coverage during a rotation window, so the compact
// step's dedup is load-bearing, not cosmetic.
//
// The ingest accumulator is deliberately excluded: a pair only becomes
// queryable once its hourly rotation has materialized it to a store.
func (db *Database) QueryKey(keys []Key, out *PairSet) {
	if len(keys) == 0 {
		return
	}
	for _, s := range db.hourly {
		if s != nil {
			s.ScanKey(keys, out)
		}
	}
	for _, s := range db.daily {
		if s != nil {
			s.ScanKey(keys, out)
		}
	}
	for _, s := range db.monthly {
		if s != nil {
			s.ScanKey(keys, out)
		}
	}
	out.Compact()
}

// QueryVal is QueryKey's column-B symmetric.
func (db *Database) QueryVal(vals []Val, out *PairSet) {
	if len(vals) == 0 {
		return
	}
	for _, s := range db.hourly {
		if s != nil {
			s.ScanVal(vals, out)
		}
	}
	for _, s := range db.daily {
		if s != nil {
			s.ScanVal(vals, out)
		}
	}
	for _, s := range db.monthly {
		if s != nil {
			s.ScanVal(vals, out)
		}
	}
	out.Compact()
}

// QueryContext is a standalone, read-only view over a directory's stores:
// no ingest buffer, no rotation, just the same QueryKey/QueryVal surface as
// Database, for tools that only ever read. QueryOpen reads up to 1024
// stores from dir.
type QueryContext struct {
	dir    string
	stores []*Store
}

// QueryOpen scans dir for store files (ignoring anything not matching the
// three filename shapes) and opens up to 1024 of them.
func QueryOpen(dir string) (*QueryContext, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
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
				return nil // corrupt/unparseable: skip, not fatal
			}
			stores[i] = st
			return nil
		})
	}
	_ = g.Wait()

	qc := &QueryContext{dir: dir}
	for _, st := range stores {
		if st != nil {
			qc.stores = append(qc.stores, st)
		}
	}
	return qc, nil
}

// Close releases every store QueryOpen opened.
func (qc *QueryContext) Close() error {
	var first error
	for _, s := range qc.stores {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// QueryKey fans scan-by-key out across every store QueryOpen found, then
// compacts out.
func (qc *QueryContext) QueryKey(keys []Key, out *PairSet) {
	if len(keys) == 0 {
		return
	}
	for _, s := range qc.stores {
		s.ScanKey(keys, out)
	}
	out.Compact()
}

// QueryVal is QueryKey's column-B symmetric.
func (qc *QueryContext) QueryVal(vals []Val, out *PairSet) {
	if len(vals) == 0 {
		return
	}
	for _, s := range qc.stores {
		s.ScanVal(vals, out)
	}
	out.Compact()
}
