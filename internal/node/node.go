// Package node is the client for the chain-facing node that indexes
// siloed-tag encrypted logs and serves Merkle witnesses over the
// public-data tree (spec.md §6, "Node client (consumed)").
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/go-pkgz/lgr"

	"github.com/lotpnl/pnl-proof-host/internal/field"
)

// Log is a single discovered encrypted event: the raw ciphertext buffer the
// tag scanner hands to the decryptor, in [tag(32B) | body] layout, plus the
// block it was mined in so the swap driver can enforce chronology (spec.md
// §4.5 step 3) without a second round trip to the node.
type Log struct {
	Body        []byte
	BlockNumber uint64
}

// NoteHashTree carries the fields the mirrored pipeline reads off a block
// header's note-hash tree snapshot.
type NoteHashTree struct {
	Root                   field.Element
	NextAvailableLeafIndex uint64
}

// BlockHeader is the subset of a node block header the core consumes.
type BlockHeader struct {
	PublicDataTreeRoot field.Element
	NoteHashTree       NoteHashTree
	NullifierTreeRoot  field.Element
}

// PublicDataLeafPreimage is a single indexed-tree leaf: a (slot, value)
// pair plus the low/high pointers of its place in the sorted leaf chain.
type PublicDataLeafPreimage struct {
	Slot      field.Element
	Value     field.Element
	NextSlot  field.Element
	NextIndex uint64
}

// PublicDataWitness is the membership/non-membership artifact for one
// indexed-tree lookup at a fixed block.
type PublicDataWitness struct {
	LeafPreimage PublicDataLeafPreimage
	Index        uint64
	SiblingPath  []field.Element
}

// Client is the interface the rest of the pipeline consumes; production
// code talks to it over JSON-RPC, tests substitute a fake.
type Client interface {
	GetLogsByTags(ctx context.Context, tags []field.Element) ([][]Log, error)
	GetBlockHeader(ctx context.Context, block uint64) (BlockHeader, error)
	GetPublicDataWitness(ctx context.Context, block uint64, index field.Element) (PublicDataWitness, error)
}

// Config configures the JSON-RPC node client.
type Config struct {
	RPCURL  string
	Timeout time.Duration
}

// RPCClient is the JSON-RPC backed Client implementation, built on
// go-ethereum's generic rpc.Client rather than ethclient since the node
// exposes custom tag/witness methods outside the standard eth_ namespace.
type RPCClient struct {
	logger lgr.L
	cfg    Config
	rpc    *rpc.Client
}

// Dial connects to the configured node endpoint.
func Dial(ctx context.Context, logger lgr.L, cfg Config) (*RPCClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("node: RPC URL is required")
	}
	c, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("node: failed to dial %s: %w", cfg.RPCURL, err)
	}
	return &RPCClient{logger: logger, cfg: cfg, rpc: c}, nil
}

func (c *RPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

type logsByTagsParam struct {
	Tags []string `json:"tags"`
}

type rawLog struct {
	Body        string `json:"body"` // hex-encoded
	BlockNumber uint64 `json:"blockNumber"`
}

// GetLogsByTags batch-looks-up logs for every siloed tag, returning one
// ordered (possibly empty) log slice per tag, in tag order.
func (c *RPCClient) GetLogsByTags(ctx context.Context, tags []field.Element) ([][]Log, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	hexTags := make([]string, len(tags))
	for i, tag := range tags {
		hexTags[i] = tag.Hex()
	}

	var raw [][]rawLog
	if err := c.rpc.CallContext(ctx, &raw, "node_getLogsByTags", hexTags); err != nil {
		c.logger.Logf("WARN node_getLogsByTags failed for %d tags: %v", len(tags), err)
		return nil, fmt.Errorf("node: get logs by tags: %w", err)
	}

	out := make([][]Log, len(raw))
	for i, perTag := range raw {
		logs := make([]Log, len(perTag))
		for j, rl := range perTag {
			body := common.FromHex(rl.Body)
			logs[j] = Log{Body: body, BlockNumber: rl.BlockNumber}
		}
		out[i] = logs
	}
	return out, nil
}

// GetBlockHeader fetches the tree-root snapshot for block.
func (c *RPCClient) GetBlockHeader(ctx context.Context, block uint64) (BlockHeader, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var raw struct {
		PublicDataTreeRoot string `json:"publicDataTreeRoot"`
		NoteHashTreeRoot   string `json:"noteHashTreeRoot"`
		NextLeafIndex      uint64 `json:"noteHashTreeNextAvailableLeafIndex"`
		NullifierTreeRoot  string `json:"nullifierTreeRoot"`
	}
	if err := c.rpc.CallContext(ctx, &raw, "node_getBlockHeader", block); err != nil {
		return BlockHeader{}, fmt.Errorf("node: get block header %d: %w", block, err)
	}

	publicRoot, err := field.ParseHex(raw.PublicDataTreeRoot)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("node: decode public data tree root: %w", err)
	}
	noteRoot, err := field.ParseHex(raw.NoteHashTreeRoot)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("node: decode note hash tree root: %w", err)
	}
	nullifierRoot, err := field.ParseHex(raw.NullifierTreeRoot)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("node: decode nullifier tree root: %w", err)
	}

	return BlockHeader{
		PublicDataTreeRoot: publicRoot,
		NoteHashTree: NoteHashTree{
			Root:                   noteRoot,
			NextAvailableLeafIndex: raw.NextLeafIndex,
		},
		NullifierTreeRoot: nullifierRoot,
	}, nil
}

// GetPublicDataWitness fetches the membership/non-membership artifact for
// index at block.
func (c *RPCClient) GetPublicDataWitness(ctx context.Context, block uint64, index field.Element) (PublicDataWitness, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var raw struct {
		LeafPreimage struct {
			Slot      string `json:"slot"`
			Value     string `json:"value"`
			NextSlot  string `json:"nextSlot"`
			NextIndex uint64 `json:"nextIndex"`
		} `json:"leafPreimage"`
		Index       uint64   `json:"index"`
		SiblingPath []string `json:"siblingPath"`
	}
	if err := c.rpc.CallContext(ctx, &raw, "node_getPublicDataWitness", block, index.Hex()); err != nil {
		return PublicDataWitness{}, fmt.Errorf("node: get public data witness at block %d index %s: %w", block, index.Hex(), err)
	}

	slot, err := field.ParseHex(raw.LeafPreimage.Slot)
	if err != nil {
		return PublicDataWitness{}, fmt.Errorf("node: decode witness slot: %w", err)
	}
	value, err := field.ParseHex(raw.LeafPreimage.Value)
	if err != nil {
		return PublicDataWitness{}, fmt.Errorf("node: decode witness value: %w", err)
	}
	nextSlot, err := field.ParseHex(raw.LeafPreimage.NextSlot)
	if err != nil {
		return PublicDataWitness{}, fmt.Errorf("node: decode witness next slot: %w", err)
	}

	siblingPath := make([]field.Element, len(raw.SiblingPath))
	for i, s := range raw.SiblingPath {
		siblingPath[i], err = field.ParseHex(s)
		if err != nil {
			return PublicDataWitness{}, fmt.Errorf("node: decode sibling path element %d: %w", i, err)
		}
	}

	return PublicDataWitness{
		LeafPreimage: PublicDataLeafPreimage{
			Slot:      slot,
			Value:     value,
			NextSlot:  nextSlot,
			NextIndex: raw.LeafPreimage.NextIndex,
		},
		Index:       raw.Index,
		SiblingPath: siblingPath,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *RPCClient) Close() {
	c.rpc.Close()
}

var _ Client = (*RPCClient)(nil)
