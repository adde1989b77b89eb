// Command zerohash precomputes the zero-hash table the aggregator uses to
// pad missing right children (spec.md §5, §4.6), and writes it to a JSON
// file for inspection. The host service does not read this file; it grows
// its own in-memory cache lazily.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/lotpnl/pnl-proof-host/internal/merkletree"
)

func main() {
	var (
		depth   = flag.Int("depth", 32, "maximum tree depth to precompute zero hashes for")
		outPath = flag.String("out", "zerohashes.json", "path to write the resulting table")
	)
	flag.Parse()

	if *depth < 1 {
		fmt.Fprintln(os.Stderr, "Error: -depth must be at least 1")
		os.Exit(1)
	}

	cache := merkletree.NewZeroHashCache()
	table := cache.Table(*depth)

	hexTable := make([]string, len(table))
	for i, h := range table {
		hexTable[i] = h.Hex()
	}

	data, err := json.MarshalIndent(hexTable, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling zero-hash table: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d zero-hash levels to %s\n", len(hexTable), *outPath)
}
