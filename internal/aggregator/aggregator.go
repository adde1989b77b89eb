// Package aggregator combines a chronologically ordered list of swap
// artifacts into a single final proof via recursive application of a
// binary summary combinator (spec.md §4.6, component C6). The combinator
// itself runs in the external prover; this package prepares its inputs,
// mirrors its chaining/chronology/oracle-identity assertions on the host,
// and cross-checks the six public outputs it returns.
package aggregator

import (
	"context"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/merkletree"
	"github.com/lotpnl/pnl-proof-host/internal/pnl"
	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
	"github.com/lotpnl/pnl-proof-host/internal/poseidon"
	"github.com/lotpnl/pnl-proof-host/internal/prover"
	"github.com/lotpnl/pnl-proof-host/internal/swapdriver"
)

const (
	outputRootOrLeaf = 0
	outputPnL        = 1
	outputRemaining  = 2
	outputInitial    = 3
	outputOracle     = 4
	outputBlock      = 5
)

// Node is one proof in the aggregation tree: the proof bytes and its six
// public outputs, in the fixed order (root_or_leaf, pnl,
// remaining_lot_state_root, initial_lot_state_root, price_feed_address,
// block_number).
type Node struct {
	Proof   []byte
	Outputs [6]field.Element
}

// VKArtifact is a verifier key in both its in-circuit field-vector form and
// its hash, as extracted from the proving backend.
type VKArtifact struct {
	Fields []field.Element
	Hash   field.Element
}

// VKSet carries the two verifier keys the combinator admits: LEAF_VK for
// level-0 children, SUMMARY_VK for children at every level above that.
type VKSet struct {
	Leaf    VKArtifact
	Summary VKArtifact
}

// Bootstrap derives LEAF_VK from a real leaf proof already produced by the
// swap driver, and SUMMARY_VK from one throwaway summary execution over a
// synthetic single-leaf pair — avoiding the chicken-and-egg problem of
// needing SUMMARY_VK to run the first real summary combination.
func Bootstrap(ctx context.Context, proverClient prover.Client, sampleLeaf Node) (VKSet, error) {
	leafArtifacts, err := proverClient.GenerateRecursiveProofArtifacts(ctx, sampleLeaf.Proof, 6)
	if err != nil {
		return VKSet{}, err
	}

	throwaway := combinatorInput{
		Level:        0,
		Left:         sampleLeaf.Outputs,
		LeftProof:    sampleLeaf.Proof,
		RightPresent: false,
		ZeroHash:     field.Zero(),
	}
	executed, err := proverClient.Execute(ctx, prover.Summary, throwaway)
	if err != nil {
		return VKSet{}, pnlerrors.ProverFailure(pnlerrors.ProverStageExecute, err)
	}
	proofArtifact, err := proverClient.GenerateProof(ctx, executed.Witness, prover.Summary)
	if err != nil {
		return VKSet{}, pnlerrors.ProverFailure(pnlerrors.ProverStageGenerateProof, err)
	}
	summaryArtifacts, err := proverClient.GenerateRecursiveProofArtifacts(ctx, proofArtifact.Proof, 6)
	if err != nil {
		return VKSet{}, err
	}

	return VKSet{
		Leaf:    VKArtifact{Fields: leafArtifacts.VKAsFields, Hash: leafArtifacts.VKHash},
		Summary: VKArtifact{Fields: summaryArtifacts.VKAsFields, Hash: summaryArtifacts.VKHash},
	}, nil
}

// combinatorInput is the record handed to the prover's Execute call for one
// summary-combinator application. ChildVKFields/ChildVKHash carry the
// admissible verifier key the children's embedded proofs must verify
// against: LEAF_VK at level 0, SUMMARY_VK at every level above that
// (spec.md §4.6's "admissible verifier keys are exactly two").
type combinatorInput struct {
	Level         int
	Left          [6]field.Element
	LeftProof     []byte
	RightPresent  bool
	Right         [6]field.Element
	RightProof    []byte
	ZeroHash      field.Element
	ChildVKFields []field.Element
	ChildVKHash   field.Element
}

// Aggregate builds the recursive proof tree over leaves, which must already
// be sorted in chronological block order, and returns the single root node
// whose public outputs are the system's final answer. A single leaf is
// still wrapped in one summary application, per the uniform-shape privacy
// requirement. vkSet carries the precomputed LEAF_VK/SUMMARY_VK the
// combinator asserts the children's embedded proofs against; callers must
// obtain it via Bootstrap before the first real aggregation run.
func Aggregate(ctx context.Context, leaves []swapdriver.Artifact, zeroHashes *merkletree.ZeroHashCache, proverClient prover.Client, vkSet VKSet) (*Node, error) {
	if len(leaves) == 0 {
		return nil, pnlerrors.InvalidInput("aggregator requires at least one swap artifact")
	}

	current := make([]Node, len(leaves))
	for i, a := range leaves {
		current[i] = Node{Proof: a.Proof, Outputs: a.PublicOutputs}
	}

	level := 0
	for len(current) > 1 || level == 0 {
		zeroHash := zeroHashes.At(level)
		next := make([]Node, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			left := current[i]
			var right *Node
			if i+1 < len(current) {
				right = &current[i+1]
			}
			combined, err := combine(ctx, level, left, right, zeroHash, proverClient, vkSet)
			if err != nil {
				return nil, err
			}
			next = append(next, combined)
		}
		current = next
		level++
	}

	return &current[0], nil
}

// combine runs one combinator application: it mirrors every assertion the
// circuit makes on the host side before driving the prover, then
// cross-checks the returned public outputs against the host mirror.
func combine(ctx context.Context, level int, left Node, right *Node, zeroHash field.Element, proverClient prover.Client, vkSet VKSet) (Node, error) {
	fail := func(err error) (Node, error) {
		if pe, ok := err.(*pnlerrors.PipelineError); ok {
			return Node{}, pe.WithLevel(level)
		}
		return Node{}, err
	}

	rightPresent := right != nil

	if rightPresent {
		if !left.Outputs[outputRemaining].Equal(right.Outputs[outputInitial]) {
			return fail(pnlerrors.Assertion(pnlerrors.AssertionRootChainMismatch).WithDetail(
				"left remaining_lot_state_root disagrees with right initial_lot_state_root"))
		}
		if left.Outputs[outputBlock].Uint64() > right.Outputs[outputBlock].Uint64() {
			return fail(pnlerrors.Assertion(pnlerrors.AssertionChronology).WithDetail(
				"left block %d > right block %d", left.Outputs[outputBlock].Uint64(), right.Outputs[outputBlock].Uint64()))
		}
		if !left.Outputs[outputOracle].Equal(right.Outputs[outputOracle]) {
			return fail(pnlerrors.Assertion(pnlerrors.AssertionOracleMismatch).WithDetail(
				"price_feed_address differs across children"))
		}
	}

	rightRootOrLeaf := zeroHash
	rightRemainingRoot := left.Outputs[outputRemaining]
	rightPnL := int64(0)
	maxBlock := left.Outputs[outputBlock].Uint64()
	var rightProof []byte
	var rightOutputs [6]field.Element
	if rightPresent {
		rightRootOrLeaf = right.Outputs[outputRootOrLeaf]
		rightRemainingRoot = right.Outputs[outputRemaining]
		rightPnL = pnl.Decode(right.Outputs[outputPnL])
		rightProof = right.Proof
		rightOutputs = right.Outputs
		if block := right.Outputs[outputBlock].Uint64(); block > maxBlock {
			maxBlock = block
		}
	}

	hostRoot := poseidon.Pair(left.Outputs[outputRootOrLeaf], rightRootOrLeaf)
	hostPnL := pnl.Add(pnl.Decode(left.Outputs[outputPnL]), rightPnL)

	// Level 0 combines leaf proofs, so children verify against LEAF_VK;
	// every level above combines summary proofs, verified against
	// SUMMARY_VK.
	childVK := vkSet.Summary
	if level == 0 {
		childVK = vkSet.Leaf
	}

	input := combinatorInput{
		Level:         level,
		Left:          left.Outputs,
		LeftProof:     left.Proof,
		RightPresent:  rightPresent,
		Right:         rightOutputs,
		RightProof:    rightProof,
		ZeroHash:      zeroHash,
		ChildVKFields: childVK.Fields,
		ChildVKHash:   childVK.Hash,
	}

	executed, err := proverClient.Execute(ctx, prover.Summary, input)
	if err != nil {
		return fail(err)
	}
	if len(executed.PublicOutputs) != 6 {
		return fail(pnlerrors.ProverFailure(pnlerrors.ProverStageExecute, nil).WithDetail(
			"expected 6 public outputs, got %d", len(executed.PublicOutputs)))
	}

	if !executed.PublicOutputs[outputRootOrLeaf].Equal(hostRoot) {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionRootChainMismatch).WithDetail(
			"combinator root disagrees with host mirror"))
	}
	if circuitPnL := pnl.Decode(executed.PublicOutputs[outputPnL]); circuitPnL != hostPnL {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionRootChainMismatch).WithDetail(
			"combinator pnl %d disagrees with host-mirrored pnl %d", circuitPnL, hostPnL))
	}
	if !executed.PublicOutputs[outputRemaining].Equal(rightRemainingRoot) {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionRootChainMismatch).WithDetail(
			"combinator remaining_lot_state_root disagrees with host mirror"))
	}
	if !executed.PublicOutputs[outputInitial].Equal(left.Outputs[outputInitial]) {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionRootChainMismatch).WithDetail(
			"combinator initial_lot_state_root disagrees with host mirror"))
	}
	if !executed.PublicOutputs[outputOracle].Equal(left.Outputs[outputOracle]) {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionOracleMismatch).WithDetail(
			"combinator price_feed_address disagrees with host mirror"))
	}
	if executed.PublicOutputs[outputBlock].Uint64() != maxBlock {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionChronology).WithDetail(
			"combinator block_number disagrees with host mirror"))
	}

	proofArtifact, err := proverClient.GenerateProof(ctx, executed.Witness, prover.Summary)
	if err != nil {
		return fail(err)
	}

	valid, err := proverClient.VerifyProof(ctx, proofArtifact.Proof, prover.Summary)
	if err != nil {
		return fail(err)
	}
	if !valid {
		return fail(pnlerrors.ProverFailure(pnlerrors.ProverStageVerify, nil).WithDetail("summary self-check failed"))
	}

	var outputs [6]field.Element
	copy(outputs[:], executed.PublicOutputs)
	return Node{Proof: proofArtifact.Proof, Outputs: outputs}, nil
}
