package rill

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// pairSource yields pairs in strictly ascending (Key, Val) order with no
// duplicates, matching the invariant Compact establishes on a PairSet.
// sliceSource and the k-way merge's heapSource both implement it, so
// WriteStore and Merge share one on-disk encoding path.
type pairSource interface {
	next() (Pair, bool)
}

type sliceSource struct {
	data []Pair
	pos  int
}

func (s *sliceSource) next() (Pair, bool) {
	if s.pos >= len(s.data) {
		return Pair{}, false
	}
	p := s.data[s.pos]
	s.pos++
	return p, true
}

// WriteStore serializes a compacted PairSet to a new store file at path,
// atomically. pairs must already be Compact()ed; an empty pair set is
// rejected, since rotation skips empty buckets rather than writing them.
func WriteStore(path string, ts Ts, q Quant, pairs *PairSet) error {
	if pairs.Len() == 0 {
		return fmt.Errorf("rill: refusing to write empty store %s", path)
	}
	return writeStream(path, ts, q, &sliceSource{data: pairs.Pairs()})
}

// writeStream drives the shared encoder: it writes the header placeholder
// and pair stream first (so a streaming merge never has to buffer the full
// output), then appends indexA/indexB/bpos once every pair has been seen,
// then seeks back and patches in the real header.
func writeStream(path string, ts Ts, q Quant, src pairSource) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp", uuid.NewString()))

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err = w.Write(make([]byte, headerSize)); err != nil {
		return err
	}

	var (
		pairCount  uint64
		streamLen  uint64
		kvBuf      [pairSize]byte
		indexA     []indexEntryBuilder
		bpos       = map[Val][]uint32{}
		curKey     Key
		curStart   uint64
		haveCurKey bool
	)

	flushA := func() {
		if haveCurKey {
			indexA = append(indexA, indexEntryBuilder{value: uint64(curKey), start: curStart, count: pairCount - curStart})
		}
	}

	for {
		p, ok := src.next()
		if !ok {
			break
		}
		if !haveCurKey || p.Key != curKey {
			flushA()
			curKey = p.Key
			curStart = pairCount
			haveCurKey = true
		}
		binary.BigEndian.PutUint64(kvBuf[0:8], uint64(p.Key))
		binary.BigEndian.PutUint64(kvBuf[8:16], uint64(p.Val))
		if _, err = w.Write(kvBuf[:]); err != nil {
			return err
		}
		bpos[p.Val] = append(bpos[p.Val], uint32(pairCount))
		pairCount++
		streamLen += pairSize
	}
	flushA()

	indexALen := uint64(len(indexA)) * indexEntrySize
	for _, e := range indexA {
		var b [indexEntrySize]byte
		binary.BigEndian.PutUint64(b[0:8], e.value)
		binary.BigEndian.PutUint64(b[8:16], e.start)
		binary.BigEndian.PutUint64(b[16:24], e.count)
		if _, err = w.Write(b[:]); err != nil {
			return err
		}
	}

	bvals := make([]Val, 0, len(bpos))
	for v := range bpos {
		bvals = append(bvals, v)
	}
	sort.Slice(bvals, func(i, j int) bool { return bvals[i] < bvals[j] })

	indexBLen := uint64(len(bvals)) * indexEntrySize
	var bposCursor uint64
	var bposBuf []byte
	for _, v := range bvals {
		positions := bpos[v]
		var b [indexEntrySize]byte
		binary.BigEndian.PutUint64(b[0:8], uint64(v))
		binary.BigEndian.PutUint64(b[8:16], bposCursor)
		binary.BigEndian.PutUint64(b[16:24], uint64(len(positions)))
		if _, err = w.Write(b[:]); err != nil {
			return err
		}
		bposCursor += uint64(len(positions))
		for _, pos := range positions {
			var pb [bposEntrySize]byte
			binary.BigEndian.PutUint32(pb[:], pos)
			bposBuf = append(bposBuf, pb[:]...)
		}
	}
	if _, err = w.Write(bposBuf); err != nil {
		return err
	}
	bposLen := uint64(len(bposBuf))

	if err = w.Flush(); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}

	hdr := &header{
		Ts:        ts,
		Quant:     q,
		Pairs:     pairCount,
		StreamOff: headerSize,
		StreamLen: streamLen,
		IndexAOff: headerSize + streamLen,
		IndexALen: indexALen,
		IndexBOff: headerSize + streamLen + indexALen,
		IndexBLen: indexBLen,
		BPosOff:   headerSize + streamLen + indexALen + indexBLen,
		BPosLen:   bposLen,
	}
	if _, err = f.WriteAt(hdr.encode(), 0); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	if err = os.Rename(tmp, path); err != nil {
		return err
	}
	return nil
}

type indexEntryBuilder struct {
	value uint64
	start uint64
	count uint64
}
