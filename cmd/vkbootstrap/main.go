// Command vkbootstrap resolves the LEAF_VK/SUMMARY_VK chicken-and-egg
// problem described in spec.md §4.6: it takes one already-produced leaf
// proof, runs the throwaway summary execution needed to extract
// SUMMARY_VK, and writes both verifier keys to a JSON file the
// aggregator can load before its first real run.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lotpnl/pnl-proof-host/internal/aggregator"
	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/prover"
)

// sampleLeafFile is the on-disk shape of the --leaf input: one real leaf
// proof and its six public outputs, as produced by a prior swap-driver run.
type sampleLeafFile struct {
	Proof         string   `json:"proof"` // hex-encoded
	PublicOutputs []string `json:"publicOutputs"`
}

type vkArtifactOutput struct {
	Fields []string `json:"fields"`
	Hash   string   `json:"hash"`
}

type vkSetOutput struct {
	Leaf    vkArtifactOutput `json:"leaf"`
	Summary vkArtifactOutput `json:"summary"`
}

func main() {
	var (
		proverURL   = flag.String("prover-url", "http://localhost:9000", "proving backend base URL")
		leafPath    = flag.String("leaf", "", "path to a JSON file with a sample leaf proof and its public outputs (required)")
		outPath     = flag.String("out", "vkset.json", "path to write the resulting verifier-key set")
		timeout     = flag.Duration("timeout", 5*time.Minute, "prover request timeout")
	)
	flag.Parse()

	if *leafPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -leaf is required")
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*leafPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading leaf file: %v\n", err)
		os.Exit(1)
	}

	var leafFile sampleLeafFile
	if err := json.Unmarshal(data, &leafFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing leaf file: %v\n", err)
		os.Exit(1)
	}
	if len(leafFile.PublicOutputs) != 6 {
		fmt.Fprintf(os.Stderr, "Error: leaf file must carry exactly 6 public outputs, got %d\n", len(leafFile.PublicOutputs))
		os.Exit(1)
	}

	var outputs [6]field.Element
	for i, s := range leafFile.PublicOutputs {
		f, err := field.ParseHex(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing public output %d: %v\n", i, err)
			os.Exit(1)
		}
		outputs[i] = f
	}

	proofBytes, err := hex.DecodeString(strings.TrimPrefix(leafFile.Proof, "0x"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding leaf proof hex: %v\n", err)
		os.Exit(1)
	}

	proverClient, err := prover.NewHTTPClient(prover.Config{BaseURL: *proverURL, Timeout: *timeout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	vks, err := aggregator.Bootstrap(ctx, proverClient, aggregator.Node{Proof: proofBytes, Outputs: outputs})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: bootstrap failed: %v\n", err)
		os.Exit(1)
	}

	out := vkSetOutput{
		Leaf:    toVKArtifactOutput(vks.Leaf),
		Summary: toVKArtifactOutput(vks.Summary),
	}

	outData, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling result: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, outData, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote verifier-key set to %s\n", *outPath)
}

func toVKArtifactOutput(vk aggregator.VKArtifact) vkArtifactOutput {
	fields := make([]string, len(vk.Fields))
	for i, f := range vk.Fields {
		fields[i] = f.Hex()
	}
	return vkArtifactOutput{Fields: fields, Hash: vk.Hash.Hex()}
}
