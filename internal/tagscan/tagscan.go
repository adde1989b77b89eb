// Package tagscan walks a recipient's tagging-secret windows against the
// node's siloed-tag log index (spec.md §4.1, component C1).
package tagscan

import (
	"context"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/node"
	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
	"github.com/lotpnl/pnl-proof-host/internal/poseidon"
)

// BaseTag computes H([secret, index]), the pre-silo tag for one window
// position.
func BaseTag(secret field.Element, index uint64) field.Element {
	return poseidon.H([]field.Element{secret, field.FromUint64(index)})
}

// SiloedTag computes H([app, baseTag]) — the only tag form the node
// actually indexes. Omitting this step is the one documented pitfall: it
// silently matches zero logs.
func SiloedTag(app, baseTag field.Element) field.Element {
	return poseidon.H([]field.Element{app, baseTag})
}

// Params bounds one scan: the window walk starts at StartIndex, advances
// BatchSize tags at a time, and never inspects more than MaxIndices tags
// in total.
type Params struct {
	Secret     field.Element
	App        field.Element
	StartIndex uint64
	MaxIndices uint64
	BatchSize  uint64
}

// Scan queries client window by window and returns every discovered log in
// tag-index order, concatenated across windows. It stops at the first
// window in which every tag returned no logs (no-hit stop), or once
// MaxIndices tags have been inspected, whichever comes first. Truncation
// at MaxIndices is silent — callers needing completeness must widen it.
func Scan(ctx context.Context, client node.Client, p Params) ([]node.Log, error) {
	var out []node.Log

	for offset := uint64(0); offset < p.MaxIndices; offset += p.BatchSize {
		windowSize := p.BatchSize
		if remaining := p.MaxIndices - offset; windowSize > remaining {
			windowSize = remaining
		}

		tags := make([]field.Element, windowSize)
		for k := uint64(0); k < windowSize; k++ {
			base := BaseTag(p.Secret, p.StartIndex+offset+k)
			tags[k] = SiloedTag(p.App, base)
		}

		results, err := client.GetLogsByTags(ctx, tags)
		if err != nil {
			return nil, pnlerrors.TagDiscovery(err).WithDetail(
				"window starting at %d, size %d", p.StartIndex+offset, windowSize)
		}

		anyHit := false
		for _, logs := range results {
			if len(logs) > 0 {
				anyHit = true
				out = append(out, logs...)
			}
		}
		if !anyHit {
			break
		}
	}

	return out, nil
}
