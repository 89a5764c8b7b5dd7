// Command rill-shard reads the pair stream rill-stream produces on stdin,
// splits it into N temporary shard stores via rill.WriteStore, then folds
// them back into one output store via rill.Merge. Useful for rebuilding a
// single store from a dumped stream without holding it all in memory at
// once.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/psyomn/rill"
)

const maxShards = 10

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <shard-dir> <output-file>\n", os.Args[0])
		os.Exit(1)
	}
	shardDir, outPath := os.Args[1], os.Args[2]

	if err := run(shardDir, outPath, os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(shardDir, outPath string, r io.Reader) error {
	in := bufio.NewReader(r)

	var hdr [24]byte
	if _, err := io.ReadFull(in, hdr[:]); err != nil {
		return fmt.Errorf("read stream header: %w", err)
	}
	pairsCount := binary.BigEndian.Uint64(hdr[0:8])
	ts := rill.Ts(binary.BigEndian.Uint64(hdr[8:16]))
	quant := rill.Quant(binary.BigEndian.Uint64(hdr[16:24]))

	if err := os.MkdirAll(shardDir, 0o775); err != nil {
		return err
	}

	chunk := pairsCount / maxShards
	remaining := pairsCount
	shardPaths := make([]string, 0, maxShards)

	for j := 0; j < maxShards; j++ {
		toRead := chunk
		if j == maxShards-1 {
			toRead = remaining
		}
		if toRead == 0 {
			continue
		}

		set := rill.NewPairSet(int(toRead))
		var buf [16]byte
		for i := uint64(0); i < toRead; i++ {
			if _, err := io.ReadFull(in, buf[:]); err != nil {
				return fmt.Errorf("read pair %d of shard %d: %w", i, j, err)
			}
			k := rill.Key(binary.BigEndian.Uint64(buf[0:8]))
			v := rill.Val(binary.BigEndian.Uint64(buf[8:16]))
			if err := set.Push(k, v); err != nil {
				return err
			}
		}
		set.Compact()
		remaining -= toRead

		shardPath := fmt.Sprintf("%s/%03d.rill.shard", shardDir, j)
		if err := rill.WriteStore(shardPath, ts, quant, set); err != nil {
			return fmt.Errorf("write shard %d: %w", j, err)
		}
		shardPaths = append(shardPaths, shardPath)
	}

	stores := make([]*rill.Store, 0, len(shardPaths))
	defer func() {
		for _, st := range stores {
			st.Close()
		}
	}()
	for _, p := range shardPaths {
		st, err := rill.OpenStore(p)
		if err != nil {
			return fmt.Errorf("open shard %s: %w", p, err)
		}
		stores = append(stores, st)
	}

	if err := rill.Merge(outPath, ts, quant, stores); err != nil {
		return fmt.Errorf("merge shards: %w", err)
	}

	for i, st := range stores {
		path := shardPaths[i]
		st.Close()
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove shard %s: %w", path, err)
		}
	}
	stores = nil
	return nil
}
