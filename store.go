package rill

import (
	"encoding/binary"
	"os"
	"sort"

	"github.com/psyomn/rill/internal/mmap"
)

// Store is an immutable, memory-mapped store file bound to (ts, quant).
// Once opened it exposes point/scan queries and forward iteration without
// ever re-parsing the file beyond the header validated at Open.
type Store struct {
	path   string
	ts     Ts
	quant  Quant
	hdr    *header
	region *mmap.Region
}

// OpenStore maps path and validates its header. A bad magic, unsupported
// version, or truncated file returns (nil, ErrBadMagic/ErrBadVersion/
// ErrCorrupt); callers opening a whole directory should treat that as a
// skip-this-file, not an abort.
func OpenStore(path string) (*Store, error) {
	region, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	data := region.Bytes()
	hdr, err := decodeHeader(data)
	if err != nil {
		region.Close()
		return nil, err
	}
	if uint64(len(data)) < hdr.BPosOff+hdr.BPosLen {
		region.Close()
		return nil, ErrCorrupt
	}
	return &Store{path: path, ts: hdr.Ts, quant: hdr.Quant, hdr: hdr, region: region}, nil
}

// Close releases the store's memory mapping. The file on disk is
// untouched; use Remove to unlink it.
func (s *Store) Close() error {
	if s == nil || s.region == nil {
		return nil
	}
	return s.region.Close()
}

// Remove unlinks the store's backing file and closes the mapping. A reader
// that already mapped the file continues to see its contents until it
// closes, even after Remove.
func (s *Store) Remove() error {
	path := s.path
	if err := s.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

// Path, Ts, Quant, Pairs and KeysCount expose the store's identity and
// shape without touching the pair stream.
func (s *Store) Path() string { return s.path }
func (s *Store) Ts() Ts { return s.ts }
func (s *Store) Quant() Quant { return s.quant }
func (s *Store) Pairs() uint64 { return s.hdr.Pairs }

// KeysCount returns the number of distinct values in the given column.
func (s *Store) KeysCount(col Column) uint64 {
	if col == ColVal {
		return s.hdr.IndexBLen / indexEntrySize
	}
	return s.hdr.IndexALen / indexEntrySize
}

func (s *Store) data() []byte { return s.region.Bytes() }

func (s *Store) pairAt(i uint64) Pair {
	off := s.hdr.StreamOff + i*pairSize
	d := s.data()
	return Pair{
		Key: Key(binary.BigEndian.Uint64(d[off : off+8])),
		Val: Val(binary.BigEndian.Uint64(d[off+8 : off+16])),
	}
}

type indexView struct {
	off, count uint64
}

func (s *Store) indexA() indexView {
	return indexView{off: s.hdr.IndexAOff, count: s.hdr.IndexALen / indexEntrySize}
}

func (s *Store) indexB() indexView {
	return indexView{off: s.hdr.IndexBOff, count: s.hdr.IndexBLen / indexEntrySize}
}

func (s *Store) entryAt(iv indexView, i uint64) (value, start, count uint64) {
	d := s.data()
	base := iv.off + i*indexEntrySize
	return binary.BigEndian.Uint64(d[base : base+8]),
		binary.BigEndian.Uint64(d[base+8 : base+16]),
		binary.BigEndian.Uint64(d[base+16 : base+24])
}

func (s *Store) bposAt(i uint64) uint32 {
	d := s.data()
	off := s.hdr.BPosOff + i*bposEntrySize
	return binary.BigEndian.Uint32(d[off : off+4])
}

// findA binary-searches index A (keys) for an exact value, returning
// (start, count, true) on a hit.
func (s *Store) findA(key Key) (start, count uint64, ok bool) {
	iv := s.indexA()
	n := int(iv.count)
	i := sort.Search(n, func(i int) bool {
		v, _, _ := s.entryAt(iv, uint64(i))
		return v >= uint64(key)
	})
	if i >= n {
		return 0, 0, false
	}
	v, start, count := s.entryAt(iv, uint64(i))
	if v != uint64(key) {
		return 0, 0, false
	}
	return start, count, true
}

func (s *Store) findB(val Val) (start, count uint64, ok bool) {
	iv := s.indexB()
	n := int(iv.count)
	i := sort.Search(n, func(i int) bool {
		v, _, _ := s.entryAt(iv, uint64(i))
		return v >= uint64(val)
	})
	if i >= n {
		return 0, 0, false
	}
	v, start, count := s.entryAt(iv, uint64(i))
	if v != uint64(val) {
		return 0, 0, false
	}
	return start, count, true
}

// ScanKey appends every (k, v) in s where k is in keys to out, for each k
// binary-searching the A index and copying its contiguous run.
func (s *Store) ScanKey(keys []Key, out *PairSet) {
	for _, k := range keys {
		start, count, ok := s.findA(k)
		if !ok {
			continue
		}
		for i := start; i < start+count; i++ {
			out.pushRaw(s.pairAt(i))
		}
	}
}

// QueryKey is the singleton convenience form of ScanKey.
func (s *Store) QueryKey(key Key, out *PairSet) {
	s.ScanKey([]Key{key}, out)
}

// ScanVal appends every (k, v) in s where v is in vals to out, via the
// inverted B index (a value's pairs are scattered through the
// key-major-sorted stream, so each hit is a list of positions rather than
// one contiguous run).
func (s *Store) ScanVal(vals []Val, out *PairSet) {
	for _, v := range vals {
		start, count, ok := s.findB(v)
		if !ok {
			continue
		}
		for i := start; i < start+count; i++ {
			pos := s.bposAt(i)
			out.pushRaw(s.pairAt(uint64(pos)))
		}
	}
}

// Iterator is a single-pass forward cursor over a store's pairs in the
// order of the named column.
type Iterator struct {
	store *Store
	col   Column
	iv    indexView
	entry uint64 // current index-entry cursor
	pos   uint64 // current position cursor within entry's run
	start uint64
	count uint64
	ready bool
}

// Iterator begins a forward scan of s ordered by col.
func (s *Store) Iterator(col Column) *Iterator {
	it := &Iterator{store: s, col: col}
	if col == ColVal {
		it.iv = s.indexB()
	} else {
		it.iv = s.indexA()
	}
	return it
}

// Next advances the iterator and reports the next pair in kv. It returns
// false at end of stream; a nil kv sentinel also terminates iteration.
func (it *Iterator) Next(kv *Pair) bool {
	for {
		if !it.ready {
			if it.entry >= it.iv.count {
				return false
			}
			_, start, count := it.store.entryAt(it.iv, it.entry)
			it.start, it.count, it.pos = start, count, 0
			it.ready = true
		}
		if it.pos >= it.count {
			it.entry++
			it.ready = false
			continue
		}
		var p Pair
		if it.col == ColVal {
			pos := it.store.bposAt(it.start + it.pos)
			p = it.store.pairAt(uint64(pos))
		} else {
			p = it.store.pairAt(it.start + it.pos)
		}
		it.pos++
		if p.Nil() {
			return false
		}
		*kv = p
		return true
	}
}
