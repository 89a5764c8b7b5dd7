package rill

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// On-disk layout of a store file:
//
//	[header  headerSize bytes, fixed offset 0]
//	[pair stream   streamLen bytes]
//	[index A       indexALen bytes]
//	[index B       indexBLen bytes]
//	[B positions   bposLen bytes]
//
// The header is self-describing: every other region's byte offset and
// length is recorded in it, so opening a store is an O(1) mmap plus header
// validation, never a full scan. Regions are written stream-first (so a
// k-way merge can stream pairs straight to disk without ever buffering the
// full output), with the header patched in at offset 0 once every other
// region's size is known; see store_writer.go.
const (
	magic        uint32 = 0x5249_4c31 // "RIL1"
	version      uint32 = 1
	headerSize          = 104
	pairSize            = 16 // Key uint64 + Val uint64
	indexEntrySize      = 24 // Value uint64 + start uint64 + count uint64
	bposEntrySize       = 4  // uint32 index into the pair stream
)

type header struct {
	Magic     uint32
	Version   uint32
	Ts        Ts
	Quant     Quant
	Pairs     uint64
	IndexAOff uint64
	IndexALen uint64
	IndexBOff uint64
	IndexBLen uint64
	BPosOff   uint64
	BPosLen   uint64
	StreamOff uint64
	StreamLen uint64
}

func (h *header) encode() []byte {
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], magic)
	binary.BigEndian.PutUint32(buf[4:8], version)
	binary.BigEndian.PutUint64(buf[8:16], uint64(h.Ts))
	binary.BigEndian.PutUint64(buf[16:24], uint64(h.Quant))
	binary.BigEndian.PutUint64(buf[24:32], h.Pairs)
	binary.BigEndian.PutUint64(buf[32:40], h.IndexAOff)
	binary.BigEndian.PutUint64(buf[40:48], h.IndexALen)
	binary.BigEndian.PutUint64(buf[48:56], h.IndexBOff)
	binary.BigEndian.PutUint64(buf[56:64], h.IndexBLen)
	binary.BigEndian.PutUint64(buf[64:72], h.BPosOff)
	binary.BigEndian.PutUint64(buf[72:80], h.BPosLen)
	binary.BigEndian.PutUint64(buf[80:88], h.StreamOff)
	binary.BigEndian.PutUint64(buf[88:96], h.StreamLen)
	sum := murmur3.Sum32(buf[0:96])
	binary.BigEndian.PutUint32(buf[96:100], sum)
	// buf[100:104] reserved, left zero.
	return buf
}

func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, ErrCorrupt
	}
	gotMagic := binary.BigEndian.Uint32(buf[0:4])
	if gotMagic != magic {
		return nil, ErrBadMagic
	}
	gotVersion := binary.BigEndian.Uint32(buf[4:8])
	if gotVersion != version {
		return nil, ErrBadVersion
	}
	sum := murmur3.Sum32(buf[0:96])
	if binary.BigEndian.Uint32(buf[96:100]) != sum {
		return nil, ErrCorrupt
	}
	h := &header{
		Magic:     gotMagic,
		Version:   gotVersion,
		Ts:        Ts(binary.BigEndian.Uint64(buf[8:16])),
		Quant:     Quant(binary.BigEndian.Uint64(buf[16:24])),
		Pairs:     binary.BigEndian.Uint64(buf[24:32]),
		IndexAOff: binary.BigEndian.Uint64(buf[32:40]),
		IndexALen: binary.BigEndian.Uint64(buf[40:48]),
		IndexBOff: binary.BigEndian.Uint64(buf[48:56]),
		IndexBLen: binary.BigEndian.Uint64(buf[56:64]),
		BPosOff:   binary.BigEndian.Uint64(buf[64:72]),
		BPosLen:   binary.BigEndian.Uint64(buf[72:80]),
		StreamOff: binary.BigEndian.Uint64(buf[80:88]),
		StreamLen: binary.BigEndian.Uint64(buf[88:96]),
	}
	switch h.Quant {
	case Hour, Day, Month:
	default:
		return nil, ErrUnknownQuant
	}
	return h, nil
}
