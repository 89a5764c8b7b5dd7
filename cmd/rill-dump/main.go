// Command rill-dump prints a single store file's header, key/val listing,
// or pair stream. It only reads through the public store surface and never
// touches rotation or ingest.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psyomn/rill"
)

func main() {
	var (
		header bool
		keysA  bool
		keysB  bool
		pairsA bool
		pairsB bool
	)

	cmd := &cobra.Command{
		Use:   "rill-dump [flags] <file>",
		Short: "Dump a rill store file's header, keys, or pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !header && !keysA && !keysB && !pairsA && !pairsB {
				return fmt.Errorf("at least one of -H/-a/-b/-A/-B is required")
			}
			return dump(args[0], header, keysA, keysB, pairsA, pairsB)
		},
	}

	cmd.Flags().BoolVarP(&header, "header", "H", false, "print the file header")
	cmd.Flags().BoolVarP(&keysA, "keys-a", "a", false, "list distinct keys (column A); ignored when -b is also given")
	cmd.Flags().BoolVarP(&keysB, "keys-b", "b", false, "list distinct vals (column B)")
	cmd.Flags().BoolVarP(&pairsA, "pairs-a", "A", false, "stream pairs ordered by column A; ignored when -B is also given")
	cmd.Flags().BoolVarP(&pairsB, "pairs-b", "B", false, "stream pairs ordered by column B")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dump(path string, header, keysA, keysB, pairsA, pairsB bool) error {
	st, err := rill.OpenStore(path)
	if err != nil {
		return err
	}
	defer st.Close()

	if header {
		fmt.Printf("file:        %s\n", st.Path())
		fmt.Printf("ts:          %d\n", st.Ts())
		fmt.Printf("quant:       %d\n", st.Quant())
		fmt.Printf("pairs:       %d\n", st.Pairs())
		fmt.Printf("keys data a: %d\n", st.KeysCount(rill.ColKey))
		fmt.Printf("keys data b: %d\n", st.KeysCount(rill.ColVal))
	}

	if keysA || keysB {
		col := rill.ColKey
		if keysB {
			col = rill.ColVal
		}
		fmt.Printf("vals %s:\n", col)
		it := st.Iterator(col)
		var kv rill.Pair
		seen := map[uint64]bool{}
		for it.Next(&kv) {
			var v uint64
			if col == rill.ColVal {
				v = uint64(kv.Val)
			} else {
				v = uint64(kv.Key)
			}
			if seen[v] {
				continue
			}
			seen[v] = true
			fmt.Printf("  0x%x\n", v)
		}
	}

	if pairsA || pairsB {
		col := rill.ColKey
		if pairsB {
			col = rill.ColVal
		}
		fmt.Printf("pairs %s:\n", col)
		it := st.Iterator(col)
		var kv rill.Pair
		for it.Next(&kv) {
			fmt.Printf("  0x%x 0x%x\n", kv.Key, kv.Val)
		}
	}

	return nil
}
