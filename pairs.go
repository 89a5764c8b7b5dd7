package rill

import "sort"

// PairSet is a growable, sortable, deduplicable multiset of pairs. It backs
// both the ingest accumulator/dump buffers and query output.
//
// Between Push and Compact, PairSet may contain unsorted duplicates. After
// Compact it is sorted ascending by (Key, Val) with no duplicates and no
// nil pairs.
type PairSet struct {
	data []Pair
}

// NewPairSet allocates a PairSet with room for cap pairs before its first
// reallocation. cap may be zero.
func NewPairSet(cap int) *PairSet {
	if cap < 0 {
		cap = 0
	}
	return &PairSet{data: make([]Pair, 0, cap)}
}

// Len returns the number of pairs currently held.
func (p *PairSet) Len() int { return len(p.data) }

// Cap returns the current backing capacity.
func (p *PairSet) Cap() int { return cap(p.data) }

// Clear sets Len to 0 but retains the backing capacity.
func (p *PairSet) Clear() { p.data = p.data[:0] }

// Pairs exposes the underlying slice. Callers must not retain it across a
// Push, which may reallocate.
func (p *PairSet) Pairs() []Pair { return p.data }

// Push appends (key, val) to the set without sorting. Growth is amortized
// via append, which doubles the backing array as needed. The only failures
// are a nil key or nil val; allocation exhaustion surfaces as a runtime
// panic like any other Go allocation.
func (p *PairSet) Push(key Key, val Val) error {
	if key == 0 {
		return ErrNilKey
	}
	if val == 0 {
		return ErrNilVal
	}
	p.data = append(p.data, Pair{Key: key, Val: val})
	return nil
}

// pushRaw appends without the nil checks, for internal callers (the
// PairSet and Store scans) that already know the pair is valid.
func (p *PairSet) pushRaw(pr Pair) {
	p.data = append(p.data, pr)
}

// Compact sorts the set ascending by (Key, Val) and removes adjacent
// duplicates in place. It is idempotent.
func (p *PairSet) Compact() {
	if len(p.data) < 2 {
		return
	}
	sort.Slice(p.data, func(i, j int) bool { return p.data[i].Cmp(p.data[j]) < 0 })

	w := 1
	for r := 1; r < len(p.data); r++ {
		if p.data[r].Cmp(p.data[w-1]) == 0 {
			continue
		}
		p.data[w] = p.data[r]
		w++
	}
	p.data = p.data[:w]
}

// ScanKey appends every pair of p whose key is in keys to out. keys need
// not be sorted. The caller is responsible for compacting out afterwards.
func (p *PairSet) ScanKey(keys []Key, out *PairSet) {
	if len(keys) == 0 {
		return
	}
	set := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	for _, pr := range p.data {
		if _, ok := set[pr.Key]; ok {
			out.pushRaw(pr)
		}
	}
}

// ScanVal is the column-B symmetric of ScanKey.
func (p *PairSet) ScanVal(vals []Val, out *PairSet) {
	if len(vals) == 0 {
		return
	}
	set := make(map[Val]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	for _, pr := range p.data {
		if _, ok := set[pr.Val]; ok {
			out.pushRaw(pr)
		}
	}
}

// Clone returns an independent copy of p's current contents.
func (p *PairSet) Clone() *PairSet {
	cp := NewPairSet(len(p.data))
	cp.data = append(cp.data, p.data...)
	return cp
}

// Equal reports whether p and o hold exactly the same ordered sequence of
// pairs. Used by tests validating round-trip and merge properties.
func (p *PairSet) Equal(o *PairSet) bool {
	if len(p.data) != len(o.data) {
		return false
	}
	for i := range p.data {
		if p.data[i] != o.data[i] {
			return false
		}
	}
	return true
}
