package tagscan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/node"
)

type fakeClient struct {
	// byWindowStart maps the zero-based ordinal of a query (the first
	// GetLogsByTags call is 0, the next 1, ...) to the logs returned per
	// tag for that query.
	byWindowStart map[uint64][][]node.Log
	queries       [][]field.Element
	err           error
}

func (f *fakeClient) GetLogsByTags(ctx context.Context, tags []field.Element) ([][]node.Log, error) {
	f.queries = append(f.queries, tags)
	if f.err != nil {
		return nil, f.err
	}
	key := uint64(len(f.queries) - 1)
	return f.byWindowStart[key], nil
}

func (f *fakeClient) GetBlockHeader(ctx context.Context, block uint64) (node.BlockHeader, error) {
	return node.BlockHeader{}, nil
}

func (f *fakeClient) GetPublicDataWitness(ctx context.Context, block uint64, index field.Element) (node.PublicDataWitness, error) {
	return node.PublicDataWitness{}, nil
}

var _ node.Client = (*fakeClient)(nil)

func TestSiloedTagIsDeterministicFunctionOfInputs(t *testing.T) {
	secret := field.FromUint64(1)
	app := field.FromUint64(2)
	base := BaseTag(secret, 5)
	a := SiloedTag(app, base)
	b := SiloedTag(app, BaseTag(secret, 5))
	assert.True(t, a.Equal(b))
}

func TestScanStopsAtFirstEmptyWindow(t *testing.T) {
	log1 := node.Log{Body: []byte("a")}
	log2 := node.Log{Body: []byte("b")}
	fake := &fakeClient{byWindowStart: map[uint64][][]node.Log{
		0: {{log1}, {}},       // window 0: hit
		1: {{}, {}},           // window 1: no hit -> stop
	}}

	logs, err := Scan(context.Background(), fake, Params{
		Secret: field.FromUint64(10), App: field.FromUint64(20),
		StartIndex: 0, MaxIndices: 10, BatchSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []node.Log{log1}, logs)
	assert.Len(t, fake.queries, 2, "scan must stop right after the empty window, not continue")
	_ = log2
}

func TestScanCapsAtMaxIndices(t *testing.T) {
	log1 := node.Log{Body: []byte("a")}
	fake := &fakeClient{byWindowStart: map[uint64][][]node.Log{
		0: {{log1}},
		1: {{log1}},
	}}

	_, err := Scan(context.Background(), fake, Params{
		Secret: field.FromUint64(1), App: field.FromUint64(2),
		StartIndex: 0, MaxIndices: 2, BatchSize: 1,
	})
	require.NoError(t, err)
	assert.Len(t, fake.queries, 2, "must never inspect more than MaxIndices tags")
}

func TestScanPropagatesNodeErrors(t *testing.T) {
	fake := &fakeClient{err: errors.New("rpc exploded")}
	_, err := Scan(context.Background(), fake, Params{
		Secret: field.FromUint64(1), App: field.FromUint64(2),
		StartIndex: 0, MaxIndices: 5, BatchSize: 5,
	})
	require.Error(t, err)
}

func TestScanPreservesTagOrderAcrossWindows(t *testing.T) {
	logA := node.Log{Body: []byte("A")}
	logB := node.Log{Body: []byte("B")}
	logC := node.Log{Body: []byte("C")}
	fake := &fakeClient{byWindowStart: map[uint64][][]node.Log{
		0: {{logA}, {logB}},
		1: {{logC}, {}},
		2: {{}, {}},
	}}

	logs, err := Scan(context.Background(), fake, Params{
		Secret: field.FromUint64(1), App: field.FromUint64(2),
		StartIndex: 0, MaxIndices: 100, BatchSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []node.Log{logA, logB, logC}, logs)
}
