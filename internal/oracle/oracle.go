// Package oracle assembles public-data-tree witnesses for oracle prices
// (spec.md §4.4, component C4): deriving the tree index for an
// (oracle, token) pair and fetching its membership witness at a block.
package oracle

import (
	"context"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/node"
	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
	"github.com/lotpnl/pnl-proof-host/internal/poseidon"
)

// DerivedMapSlot computes the per-token storage slot inside the oracle's
// assets mapping: H([assets_map_slot, token]).
func DerivedMapSlot(assetsMapSlot, token field.Element) field.Element {
	return poseidon.H([]field.Element{assetsMapSlot, token})
}

// TreeIndex computes the public-data-tree leaf index for (oracle, token),
// domain-separated by LeafIndexSilo (23) per the "public leaf index" tag.
func TreeIndex(oracle, derivedMapSlot field.Element) field.Element {
	return poseidon.Hs([]field.Element{oracle, derivedMapSlot}, poseidon.LeafIndexSilo)
}

// Witness is the oracle price witness handed to the swap driver: the raw
// node witness plus the price it attests to.
type Witness struct {
	Node  node.PublicDataWitness
	Price field.Element
}

// Fetch derives the tree index for (oracle, token), queries the node for
// its public-data witness at block, and returns the price it attests to.
func Fetch(ctx context.Context, client node.Client, oracle, assetsMapSlot, token field.Element, block uint64) (Witness, error) {
	derived := DerivedMapSlot(assetsMapSlot, token)
	index := TreeIndex(oracle, derived)

	w, err := client.GetPublicDataWitness(ctx, block, index)
	if err != nil {
		return Witness{}, pnlerrors.OracleWitnessUnavailable(err).WithDetail(
			"oracle=%s token=%s block=%d", oracle.Hex(), token.Hex(), block)
	}

	return Witness{Node: w, Price: w.LeafPreimage.Value}, nil
}
