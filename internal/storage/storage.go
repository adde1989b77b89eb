// Package storage persists per-run artifacts for the PnL proof pipeline:
// the final six public outputs and proof bytes, plus every per-swap
// artifact produced along the way, keyed by run ID so an operator can
// inspect chaining after a run fails partway (spec.md §4.6/§7;
// SPEC_FULL.md §3 "Run-level audit trail"). Adapted from the teacher's
// internal/infra/storage badger client, with the vault/epoch snapshot
// schema replaced by the run/swap schema this domain actually needs.
package storage

import (
	"context"
	"time"
)

// RunStatus tracks one aggregation run through its lifecycle, matching
// the HTTP API's async trigger/poll surface (SPEC_FULL.md §1 "HTTP
// surface").
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// SwapRecord is the audit-trail entry for one swap-driver call: its
// public outputs and mirrored PnL, independent of whether the run as a
// whole later succeeds.
type SwapRecord struct {
	Index         int       `json:"index"`
	BlockNumber   uint64    `json:"blockNumber"`
	PublicOutputs [6]string `json:"publicOutputs"` // hex-encoded field elements
	MirroredPnL   int64     `json:"mirroredPnL"`
}

// RunRecord is the persisted state of one end-to-end run: tag discovery
// through final aggregation.
type RunRecord struct {
	RunID     string    `json:"runId"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Swaps []SwapRecord `json:"swaps"`

	FinalProof   []byte     `json:"finalProof,omitempty"`
	FinalOutputs *[6]string `json:"finalOutputs,omitempty"` // hex-encoded, present once Status == RunCompleted
}

// Config configures the Badger-backed run store.
type Config struct {
	Path string `yaml:"path"`
}

// Store is the persistence interface the service layer depends on.
type Store interface {
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}
