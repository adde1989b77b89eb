// Package handlers implements the HTTP surface's request handlers: one
// handler type per resource.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-pkgz/lgr"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
	"github.com/lotpnl/pnl-proof-host/internal/service"
	"github.com/lotpnl/pnl-proof-host/internal/storage"
)

// RunHandler serves the run trigger/poll/fetch surface (SPEC_FULL.md §1
// "HTTP surface"): POST starts a run in the background and returns its
// ID immediately, GET polls status, and the outputs route fetches the
// final six public fields once a run has completed.
type RunHandler struct {
	service service.Runner
	store   storage.Store
	logger  lgr.L
}

// NewRunHandler builds a RunHandler over svc and store.
func NewRunHandler(svc service.Runner, store storage.Store, logger lgr.L) *RunHandler {
	return &RunHandler{service: svc, store: store, logger: logger}
}

// triggerRunRequest is the POST /api/runs request body: the tagging
// secret entry and the window/oracle coordinates for one run, all field
// elements hex-encoded.
type triggerRunRequest struct {
	Secret       string `json:"secret"`
	App          string `json:"app"`
	Counterparty string `json:"counterparty,omitempty"`
	Direction    string `json:"direction,omitempty"`
	Label        string `json:"label,omitempty"`

	StartIndex uint64 `json:"startIndex"`
	MaxIndices uint64 `json:"maxIndices"`
	BatchSize  uint64 `json:"batchSize"`

	OracleAddr         string `json:"oracleAddr"`
	AssetsSlot         string `json:"assetsSlot"`
	InitialBlockNumber uint64 `json:"initialBlockNumber"`
}

func (req triggerRunRequest) toParams() (service.RunParams, error) {
	secret, err := field.ParseHex(req.Secret)
	if err != nil {
		return service.RunParams{}, pnlerrors.InvalidInput("malformed secret field: " + err.Error())
	}
	app, err := field.ParseHex(req.App)
	if err != nil {
		return service.RunParams{}, pnlerrors.InvalidInput("malformed app field: " + err.Error())
	}
	oracleAddr, err := field.ParseHex(req.OracleAddr)
	if err != nil {
		return service.RunParams{}, pnlerrors.InvalidInput("malformed oracleAddr field: " + err.Error())
	}
	assetsSlot, err := field.ParseHex(req.AssetsSlot)
	if err != nil {
		return service.RunParams{}, pnlerrors.InvalidInput("malformed assetsSlot field: " + err.Error())
	}

	var counterparty field.Element
	if req.Counterparty != "" {
		counterparty, err = field.ParseHex(req.Counterparty)
		if err != nil {
			return service.RunParams{}, pnlerrors.InvalidInput("malformed counterparty field: " + err.Error())
		}
	}

	if req.BatchSize == 0 || req.MaxIndices == 0 {
		return service.RunParams{}, pnlerrors.InvalidInput("batchSize and maxIndices must be non-zero")
	}

	return service.RunParams{
		Secret: service.TaggingSecretEntry{
			Secret:       secret,
			App:          app,
			Counterparty: counterparty,
			Direction:    service.Direction(req.Direction),
			Label:        req.Label,
		},
		StartIndex:         req.StartIndex,
		MaxIndices:         req.MaxIndices,
		BatchSize:          req.BatchSize,
		OracleAddr:         oracleAddr,
		AssetsSlot:         assetsSlot,
		InitialBlockNumber: req.InitialBlockNumber,
	}, nil
}

// HandleTriggerRun starts a new run in the background and returns its ID.
func (h *RunHandler) HandleTriggerRun(w http.ResponseWriter, r *http.Request) {
	var req triggerRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, pnlerrors.InvalidInput("malformed request body: "+err.Error()), "failed to parse request")
		return
	}

	params, err := req.toParams()
	if err != nil {
		writeErrorResponse(w, err, "invalid run parameters")
		return
	}

	runID := service.DefaultRunIDFunc()
	if err := h.store.SaveRun(r.Context(), storage.RunRecord{RunID: runID, Status: storage.RunPending}); err != nil {
		h.logger.Logf("ERROR failed to persist pending run %s: %v", runID, err)
		writeErrorResponse(w, err, "failed to schedule run")
		return
	}

	// The run executes past this handler's request lifetime, so it gets
	// a detached context rather than r.Context().
	go func() {
		if _, runErr := h.service.Run(context.Background(), runID, params); runErr != nil {
			h.logger.Logf("ERROR run %s failed: %v", runID, runErr)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
		"runId":  runID,
		"status": string(storage.RunPending),
	})
}

// HandleGetRunStatus polls a run's current status and audit trail.
func (h *RunHandler) HandleGetRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runId")
	if runID == "" {
		writeErrorResponse(w, pnlerrors.InvalidInput("missing runId"), "missing run id")
		return
	}

	record, err := h.store.GetRun(r.Context(), runID)
	if err != nil {
		writeErrorResponse(w, err, "run not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(record) //nolint:errcheck
}

// HandleGetRunOutputs fetches the final six public outputs and proof for
// a completed run.
func (h *RunHandler) HandleGetRunOutputs(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runId")
	if runID == "" {
		writeErrorResponse(w, pnlerrors.InvalidInput("missing runId"), "missing run id")
		return
	}

	record, err := h.store.GetRun(r.Context(), runID)
	if err != nil {
		writeErrorResponse(w, err, "run not found")
		return
	}

	if record.Status != storage.RunCompleted {
		writeErrorResponse(w, pnlerrors.InvalidInput("run has not completed"), "outputs not yet available")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
		"runId":         record.RunID,
		"publicOutputs": record.FinalOutputs,
		"proof":         record.FinalProof,
	})
}

// HandleListRuns lists recent runs, most recently created first.
func (h *RunHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context(), 50)
	if err != nil {
		writeErrorResponse(w, err, "failed to list runs")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(runs) //nolint:errcheck
}
