// Package swapdriver drives one discovered swap event end to end: decrypt,
// mutate the lot-state tree (sell then buy), assemble the circuit's input
// record, and drive the external prover to a verified proof
// (spec.md §4.5, component C5).
package swapdriver

import (
	"context"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/lotpnl/pnl-proof-host/internal/decrypt"
	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/lotstate"
	"github.com/lotpnl/pnl-proof-host/internal/merkletree"
	"github.com/lotpnl/pnl-proof-host/internal/node"
	"github.com/lotpnl/pnl-proof-host/internal/oracle"
	"github.com/lotpnl/pnl-proof-host/internal/pnl"
	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
	"github.com/lotpnl/pnl-proof-host/internal/prover"
)

// Input is everything one swap-driver call needs, per spec.md §4.5: the
// raw on-chain ciphertext, the block it was mined in and the previous
// processed block, the oracle coordinates for pricing, and the viewing
// secret. The lot-state tree it mutates is passed to Drive separately.
type Input struct {
	RawCiphertext       []byte
	BlockNumber         uint64
	PreviousBlockNumber uint64
	OracleAddr          field.Element
	AssetsSlot          field.Element
	ViewingSecret       field.Element
}

// CircuitInput is the record handed to the prover's Execute call; its
// field set mirrors spec.md §4.5 step 13 exactly, with every array padded
// to its fixed length.
type CircuitInput struct {
	PlaintextFields     decrypt.PlaintextFields
	CiphertextFields    []field.Element
	ViewingSecret       field.Element
	BlockNumber         uint64
	PreviousBlockNumber uint64
	InitialLotRoot      field.Element

	SellSlot    int
	SellNumLots int
	SellLots    [lotstate.MaxLots]lotstate.Lot
	SiblingSell [lotstate.HeightLot]field.Element

	BuySlot    int
	BuyNumLots int
	BuyLots    [lotstate.MaxLots]lotstate.Lot
	SiblingBuy [lotstate.HeightLot]field.Element

	OracleAddr         field.Element
	AssetsSlot         field.Element
	PublicDataTreeRoot field.Element
	SellPriceWitness   oracle.Witness
	BuyPriceWitness    oracle.Witness
}

// Artifact is the swap driver's result: the verified proof, its six
// public outputs, and the host-mirrored signed PnL used as a cross-check.
type Artifact struct {
	Proof         []byte
	PublicOutputs [6]field.Element
	MirroredPnL   int64
}

const (
	plaintextTokenIn      = 2
	plaintextTokenOut     = 3
	plaintextAmountIn     = 4
	plaintextAmountOut    = 5
	plaintextIsExactInput = 6
)

// ciphertextToFields chunks the raw [tag|body] buffer into 32-byte field
// elements, the same layout the leaf hash and the circuit both consume.
func ciphertextToFields(raw []byte) []field.Element {
	n := (len(raw) + field.ByteLen - 1) / field.ByteLen
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		start := i * field.ByteLen
		end := start + field.ByteLen
		if end > len(raw) {
			end = len(raw)
		}
		var chunk [field.ByteLen]byte
		copy(chunk[:], raw[start:end])
		out[i] = field.SetBytes(chunk[:])
	}
	return out
}

// Drive runs the full per-swap pipeline. tree is mutated in place; on
// return its root is the swap's remaining_lot_state_root (R2).
func Drive(
	ctx context.Context,
	swapIndex int,
	in Input,
	tree *lotstate.Tree,
	nodeClient node.Client,
	proverClient prover.Client,
) (*Artifact, error) {
	fail := func(err error) (*Artifact, error) {
		if pe, ok := err.(*pnlerrors.PipelineError); ok {
			return nil, pe.WithSwap(swapIndex)
		}
		return nil, err
	}

	ciphertextFields := ciphertextToFields(in.RawCiphertext)
	if len(ciphertextFields) < 1+decrypt.MessageCiphertextLen {
		return fail(pnlerrors.InvalidInput("ciphertext buffer too short to carry tag and body"))
	}
	bodyFields := ciphertextFields[1 : 1+decrypt.MessageCiphertextLen]

	// Step 1: decrypt. A failure here is fatal — the driver is only ever
	// invoked on ciphertexts already known to belong to this viewer.
	plaintext, ok, err := decrypt.Decrypt(bodyFields, in.ViewingSecret)
	if err != nil {
		return fail(pnlerrors.Decrypt(err.Error()))
	}
	if !ok {
		return fail(pnlerrors.Decrypt("AEAD authentication failed for every ephemeral-key sign candidate"))
	}

	// Step 2: extract.
	tokenIn := plaintext[plaintextTokenIn]
	tokenOut := plaintext[plaintextTokenOut]
	amountIn := uint256.MustFromBig(plaintext[plaintextAmountIn].BigInt())
	amountOut := uint256.MustFromBig(plaintext[plaintextAmountOut].BigInt())

	// Step 3: chronology.
	if in.BlockNumber < in.PreviousBlockNumber {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionChronology).WithDetail(
			"block %d < previous block %d", in.BlockNumber, in.PreviousBlockNumber))
	}

	// Step 4: slot binding.
	sellSlot, err := tree.Assign(tokenIn)
	if err != nil {
		return fail(err)
	}
	buySlot, err := tree.Assign(tokenOut)
	if err != nil {
		return fail(err)
	}

	// Step 5: oracle block header.
	header, err := nodeClient.GetBlockHeader(ctx, in.BlockNumber)
	if err != nil {
		return fail(pnlerrors.OracleWitnessUnavailable(err))
	}

	// Step 6: oracle witnesses for both legs.
	sellWitness, err := oracle.Fetch(ctx, nodeClient, in.OracleAddr, in.AssetsSlot, tokenIn, in.BlockNumber)
	if err != nil {
		return fail(err)
	}
	buyWitness, err := oracle.Fetch(ctx, nodeClient, in.OracleAddr, in.AssetsSlot, tokenOut, in.BlockNumber)
	if err != nil {
		return fail(err)
	}

	// Step 7: snapshot initial root.
	initialRoot := tree.Root()

	// Step 8: sell-side FIFO consumption.
	sellLots, sellNumLots, _ := tree.GetLots(tokenIn)
	siblingSell := tree.SiblingPath(sellSlot)

	sellPrice := uint256.MustFromBig(sellWitness.Price.BigInt())
	remaining := new(uint256.Int).Set(amountIn)
	pnlAccum := new(big.Int)

	for i := 0; i < sellNumLots; i++ {
		if remaining.IsZero() {
			break
		}
		lot := &sellLots[i]
		consumed := new(uint256.Int).Set(lot.Amount)
		if consumed.Cmp(remaining) > 0 {
			consumed.Set(remaining)
		}

		costDiff := new(big.Int).Sub(sellPrice.ToBig(), lot.CostPerUnit.ToBig())
		term := new(big.Int).Mul(consumed.ToBig(), costDiff)
		pnlAccum.Add(pnlAccum, term)

		lot.Amount = new(uint256.Int).Sub(lot.Amount, consumed)
		remaining = new(uint256.Int).Sub(remaining, consumed)
	}
	if !remaining.IsZero() {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionFIFOUnderConsumed).WithDetail(
			"token %s: %s units unconsumed", tokenIn.Hex(), remaining.String()))
	}
	if !pnlAccum.IsInt64() {
		return fail(pnlerrors.InvalidInput("realized pnl does not fit in a signed 64-bit integer"))
	}
	swapPnL := pnlAccum.Int64()

	compactedSell, newSellNumLots := lotstate.Compact(sellLots)
	if err := tree.SetLots(tokenIn, compactedSell, newSellNumLots); err != nil {
		return fail(err)
	}

	// Step 9/10: buy-side append.
	buyLots, buyNumLots, _ := tree.GetLots(tokenOut)
	siblingBuy := tree.SiblingPath(buySlot)

	if buyNumLots >= lotstate.MaxLots {
		return fail(pnlerrors.InvalidInput("buy side lot array is full"))
	}
	buyLots[buyNumLots] = lotstate.Lot{Amount: amountOut, CostPerUnit: uint256.MustFromBig(buyWitness.Price.BigInt())}
	newBuyNumLots := buyNumLots + 1
	if err := tree.SetLots(tokenOut, buyLots, newBuyNumLots); err != nil {
		return fail(err)
	}

	// Step 11: final root.
	finalRoot := tree.Root()

	// Step 12: ciphertext leaf.
	leaf := merkletree.CiphertextToLeaf(in.RawCiphertext)

	// Step 13: assemble circuit input.
	circuitInput := CircuitInput{
		PlaintextFields:     plaintext,
		CiphertextFields:    ciphertextFields,
		ViewingSecret:       in.ViewingSecret,
		BlockNumber:         in.BlockNumber,
		PreviousBlockNumber: in.PreviousBlockNumber,
		InitialLotRoot:      initialRoot,
		SellSlot:            sellSlot,
		SellNumLots:         sellNumLots,
		SellLots:            sellLots,
		SiblingSell:         siblingSell,
		BuySlot:             buySlot,
		BuyNumLots:          buyNumLots,
		BuyLots:             buyLots,
		SiblingBuy:          siblingBuy,
		OracleAddr:          in.OracleAddr,
		AssetsSlot:          in.AssetsSlot,
		PublicDataTreeRoot:  header.PublicDataTreeRoot,
		SellPriceWitness:    sellWitness,
		BuyPriceWitness:     buyWitness,
	}

	// Step 14: drive the prover.
	executed, err := proverClient.Execute(ctx, prover.Leaf, circuitInput)
	if err != nil {
		return fail(err)
	}
	if len(executed.PublicOutputs) != 6 {
		return fail(pnlerrors.ProverFailure(pnlerrors.ProverStageExecute, nil).WithDetail(
			"expected 6 public outputs, got %d", len(executed.PublicOutputs)))
	}
	// Public outputs are ordered (leaf_or_root, pnl, remaining_lot_state_root,
	// initial_lot_state_root, price_feed_address, block_number).
	if !executed.PublicOutputs[0].Equal(leaf) {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionRootChainMismatch).WithDetail(
			"circuit ciphertext leaf disagrees with host mirror"))
	}
	if !executed.PublicOutputs[2].Equal(finalRoot) {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionRootChainMismatch).WithDetail(
			"circuit remaining_lot_state_root disagrees with host mirror"))
	}
	if !executed.PublicOutputs[3].Equal(initialRoot) {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionRootChainMismatch).WithDetail(
			"circuit initial_lot_state_root disagrees with host mirror"))
	}
	if circuitPnL := pnl.Decode(executed.PublicOutputs[1]); circuitPnL != swapPnL {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionRootChainMismatch).WithDetail(
			"circuit pnl %d disagrees with host-mirrored pnl %d", circuitPnL, swapPnL))
	}
	if !executed.PublicOutputs[4].Equal(in.OracleAddr) {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionOracleMismatch).WithDetail(
			"circuit price_feed_address disagrees with host mirror"))
	}
	if executed.PublicOutputs[5].Uint64() != in.BlockNumber {
		return fail(pnlerrors.Assertion(pnlerrors.AssertionChronology).WithDetail(
			"circuit block_number disagrees with host mirror"))
	}

	proofArtifact, err := proverClient.GenerateProof(ctx, executed.Witness, prover.Leaf)
	if err != nil {
		return fail(err)
	}

	valid, err := proverClient.VerifyProof(ctx, proofArtifact.Proof, prover.Leaf)
	if err != nil {
		return fail(err)
	}
	if !valid {
		return fail(pnlerrors.ProverFailure(pnlerrors.ProverStageVerify, nil).WithDetail("local self-check failed"))
	}

	var outputs [6]field.Element
	copy(outputs[:], executed.PublicOutputs)

	return &Artifact{
		Proof:         proofArtifact.Proof,
		PublicOutputs: outputs,
		MirroredPnL:   swapPnL,
	}, nil
}
