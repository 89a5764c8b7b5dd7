// Command rill-stream writes a store's pairs to stdout as a binary
// stream: pairs_count || ts || quant || (k,v)*, all fields big-endian
// uint64. rill-shard consumes the same stream on stdin.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/psyomn/rill"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file>\n", os.Args[0])
		os.Exit(1)
	}

	st, err := rill.OpenStore(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer st.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var hdr [24]byte
	binary.BigEndian.PutUint64(hdr[0:8], st.Pairs())
	binary.BigEndian.PutUint64(hdr[8:16], uint64(st.Ts()))
	binary.BigEndian.PutUint64(hdr[16:24], uint64(st.Quant()))
	if _, err := out.Write(hdr[:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	it := st.Iterator(rill.ColKey)
	var kv rill.Pair
	var buf [16]byte
	for it.Next(&kv) {
		binary.BigEndian.PutUint64(buf[0:8], uint64(kv.Key))
		binary.BigEndian.PutUint64(buf[8:16], uint64(kv.Val))
		if _, err := out.Write(buf[:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
