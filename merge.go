package rill

import "container/heap"

// heapItem is one source's current head pair, tracked alongside its source
// index so ties resolve stably (lower index wins) even though duplicates
// collapsing means the tie-break is never actually observable.
type heapItem struct {
	kv  Pair
	src int
}

type mergeHeap []heapItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if c := h[i].kv.Cmp(h[j].kv); c != 0 {
		return c < 0
	}
	return h[i].src < h[j].src
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any) { *h = append(*h, x.(heapItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// heapSource drains N store iterators in sorted-deduplicated order via a
// min-heap, implementing pairSource so it can reuse writeStream's on-disk
// encoder directly.
type heapSource struct {
	its  []*Iterator
	h    mergeHeap
	last Pair
	have bool
}

func newHeapSource(stores []*Store) *heapSource {
	hs := &heapSource{}
	for _, st := range stores {
		if st == nil {
			continue
		}
		it := st.Iterator(ColKey)
		var kv Pair
		if it.Next(&kv) {
			hs.its = append(hs.its, it)
			hs.h = append(hs.h, heapItem{kv: kv, src: len(hs.its) - 1})
		}
	}
	heap.Init(&hs.h)
	return hs
}

func (hs *heapSource) next() (Pair, bool) {
	for hs.h.Len() > 0 {
		top := heap.Pop(&hs.h).(heapItem)
		var nextKV Pair
		if hs.its[top.src].Next(&nextKV) {
			heap.Push(&hs.h, heapItem{kv: nextKV, src: top.src})
		}
		if hs.have && top.kv.Cmp(hs.last) == 0 {
			continue
		}
		hs.last = top.kv
		hs.have = true
		return top.kv, true
	}
	return Pair{}, false
}

// Merge produces a new store at path whose pairs are the sorted,
// deduplicated union of stores[0:n)'s pair streams, stamped with the
// caller-supplied ts and q rather than anything taken from the inputs. It
// streams the merged output directly to the writer (see writeStream) and
// never materializes the full result in memory; the bookkeeping held for
// the whole run is one index entry per distinct key and per distinct val,
// plus one 4-byte B-index position per pair.
//
// Any I/O error aborts the merge, deletes the partial output, and leaves
// every input store untouched.
func Merge(path string, ts Ts, q Quant, stores []*Store) error {
	nonNil := 0
	for _, s := range stores {
		if s != nil {
			nonNil++
		}
	}
	if nonNil == 0 {
		return ErrNoInputStores
	}
	return writeStream(path, ts, q, newHeapSource(stores))
}
