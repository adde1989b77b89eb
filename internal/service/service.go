// Package service orchestrates one end-to-end run of the pipeline: tag
// discovery, per-swap driving, and final aggregation (spec.md §2 "Data
// flow: node → C1 → (C2 + C4) → C5 → C6 → final public outputs"). It is
// the glue the rest of the core deliberately leaves as "external
// collaborators" in spec.md §1 — wiring tagscan, swapdriver and
// aggregator together against one node/prover pair and persisting the
// result.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/lotpnl/pnl-proof-host/internal/aggregator"
	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/lotstate"
	"github.com/lotpnl/pnl-proof-host/internal/merkletree"
	"github.com/lotpnl/pnl-proof-host/internal/node"
	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
	"github.com/lotpnl/pnl-proof-host/internal/prover"
	"github.com/lotpnl/pnl-proof-host/internal/storage"
	"github.com/lotpnl/pnl-proof-host/internal/swapdriver"
	"github.com/lotpnl/pnl-proof-host/internal/tagscan"
)

// Direction is the siloed-tag entry's inbound/outbound classification
// (spec.md §3 "Tagging-secret entry"); preserved across the retrieval API
// but never consumed past discovery.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// TaggingSecretEntry is one entry of the exported tagging-secret blob
// (spec.md §6 "Persisted state"): only Secret and App drive discovery,
// the rest is metadata carried for the caller's own bookkeeping.
type TaggingSecretEntry struct {
	Secret       field.Element
	App          field.Element
	Counterparty field.Element
	Direction    Direction
	Label        string
}

// FinalArtifact is the top-level Result the caller sees: the six public
// fields of the aggregated proof, and its bytes. No partial-success
// return exists (spec.md §7).
type FinalArtifact struct {
	Proof         []byte
	PublicOutputs [6]field.Element
}

// RunParams bounds one run: which secret/app pair to scan, the window
// walk, and the oracle coordinates every swap in the run prices against.
type RunParams struct {
	Secret TaggingSecretEntry

	StartIndex uint64
	MaxIndices uint64
	BatchSize  uint64

	OracleAddr         field.Element
	AssetsSlot         field.Element
	InitialBlockNumber uint64 // chronology floor for the run's first swap
}

// Runner is the interface the HTTP layer depends on, so handlers can be
// tested against a fake without driving the real crypto pipeline.
type Runner interface {
	Run(ctx context.Context, runID string, params RunParams) (*FinalArtifact, error)
}

// Service drives complete runs against one node/prover pair, persisting
// progress to Store so the HTTP layer can poll a run to completion.
type Service struct {
	node       node.Client
	prover     prover.Client
	store      storage.Store
	zeroHashes *merkletree.ZeroHashCache
	logger     lgr.L

	vkMu  sync.Mutex
	vkSet *aggregator.VKSet
}

// New builds a Service over the given collaborators.
func New(nodeClient node.Client, proverClient prover.Client, store storage.Store, logger lgr.L) *Service {
	return &Service{
		node:       nodeClient,
		prover:     proverClient,
		store:      store,
		zeroHashes: merkletree.NewZeroHashCache(),
		logger:     logger,
	}
}

// ensureVKSet returns the cached admissible-verifier-key set, bootstrapping
// it from sampleLeaf on first use (spec.md §4.6: LEAF_VK is extracted from
// a real leaf proof, SUMMARY_VK from one throwaway summary execution run
// before the real aggregation begins). The proving backend's keys are
// fixed per circuit, so the bootstrap result is reused across every run
// for the lifetime of the Service.
func (s *Service) ensureVKSet(ctx context.Context, sampleLeaf aggregator.Node) (aggregator.VKSet, error) {
	s.vkMu.Lock()
	defer s.vkMu.Unlock()

	if s.vkSet != nil {
		return *s.vkSet, nil
	}

	vkSet, err := aggregator.Bootstrap(ctx, s.prover, sampleLeaf)
	if err != nil {
		return aggregator.VKSet{}, fmt.Errorf("bootstrap admissible verifier keys: %w", err)
	}
	s.vkSet = &vkSet
	return vkSet, nil
}

// Run discovers every ciphertext for params.Secret, drives a swap-driver
// call per event, aggregates the resulting artifacts into one final
// proof, and persists the run under runID at every stage so a caller
// polling via the HTTP API sees live progress.
func (s *Service) Run(ctx context.Context, runID string, params RunParams) (*FinalArtifact, error) {
	record := storage.RunRecord{RunID: runID, Status: storage.RunRunning}
	if err := s.store.SaveRun(ctx, record); err != nil {
		s.logger.Logf("WARN run %s: failed to persist initial status: %v", runID, err)
	}

	result, err := s.run(ctx, runID, params, &record)
	if err != nil {
		record.Status = storage.RunFailed
		record.Error = err.Error()
		if saveErr := s.store.SaveRun(ctx, record); saveErr != nil {
			s.logger.Logf("WARN run %s: failed to persist failure status: %v", runID, saveErr)
		}
		return nil, err
	}

	record.Status = storage.RunCompleted
	outputsHex := toHexArray(result.PublicOutputs)
	record.FinalOutputs = &outputsHex
	record.FinalProof = result.Proof
	if err := s.store.SaveRun(ctx, record); err != nil {
		s.logger.Logf("WARN run %s: failed to persist completion: %v", runID, err)
	}

	return result, nil
}

func (s *Service) run(ctx context.Context, runID string, params RunParams, record *storage.RunRecord) (*FinalArtifact, error) {
	logs, err := tagscan.Scan(ctx, s.node, tagscan.Params{
		Secret:     params.Secret.Secret,
		App:        params.Secret.App,
		StartIndex: params.StartIndex,
		MaxIndices: params.MaxIndices,
		BatchSize:  params.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: tag discovery: %w", runID, err)
	}
	if len(logs) == 0 {
		return nil, pnlerrors.InvalidInput(fmt.Sprintf("run %s: no swaps discovered for the given secret/app", runID))
	}

	tree := lotstate.New()
	previousBlock := params.InitialBlockNumber
	artifacts := make([]swapdriver.Artifact, 0, len(logs))

	for i, log := range logs {
		artifact, err := swapdriver.Drive(ctx, i, swapdriver.Input{
			RawCiphertext:       log.Body,
			BlockNumber:         log.BlockNumber,
			PreviousBlockNumber: previousBlock,
			OracleAddr:          params.OracleAddr,
			AssetsSlot:          params.AssetsSlot,
			ViewingSecret:       params.Secret.Secret,
		}, tree, s.node, s.prover)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}

		previousBlock = log.BlockNumber
		artifacts = append(artifacts, *artifact)

		record.Swaps = append(record.Swaps, storage.SwapRecord{
			Index:         i,
			BlockNumber:   log.BlockNumber,
			PublicOutputs: toHexArray(artifact.PublicOutputs),
			MirroredPnL:   artifact.MirroredPnL,
		})
		if err := s.store.SaveRun(ctx, *record); err != nil {
			s.logger.Logf("WARN run %s: failed to persist swap %d audit entry: %v", runID, i, err)
		}
	}

	sampleLeaf := aggregator.Node{Proof: artifacts[0].Proof, Outputs: artifacts[0].PublicOutputs}
	vkSet, err := s.ensureVKSet(ctx, sampleLeaf)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	final, err := aggregator.Aggregate(ctx, artifacts, s.zeroHashes, s.prover, vkSet)
	if err != nil {
		return nil, fmt.Errorf("run %s: aggregation: %w", runID, err)
	}

	return &FinalArtifact{Proof: final.Proof, PublicOutputs: final.Outputs}, nil
}

var _ Runner = (*Service)(nil)

func toHexArray(outputs [6]field.Element) [6]string {
	var out [6]string
	for i, f := range outputs {
		out[i] = f.Hex()
	}
	return out
}

// elapsedSince reports the wall-clock time since start, for the
// scheduler's run-duration logging.
func elapsedSince(start time.Time) time.Duration {
	return time.Since(start)
}
