package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-pkgz/lgr"
	"github.com/stretchr/testify/require"

	"github.com/lotpnl/pnl-proof-host/internal/config"
	"github.com/lotpnl/pnl-proof-host/internal/service"
	"github.com/lotpnl/pnl-proof-host/internal/storage"
)

type fakeRunner struct {
	called chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, runID string, params service.RunParams) (*service.FinalArtifact, error) {
	if f.called != nil {
		close(f.called)
	}
	return &service.FinalArtifact{}, nil
}

func newTestServer(t *testing.T) (*Server, storage.Store) {
	t.Helper()
	store, err := storage.Open(lgr.NoOp, storage.Config{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{}
	server := NewServer(&fakeRunner{}, store, lgr.NoOp, cfg)
	return server, store
}

func TestServerRoutes(t *testing.T) {
	server, store := newTestServer(t)
	handler := server.SetupRoutes()

	require.NoError(t, store.SaveRun(context.Background(), storage.RunRecord{RunID: "abc", Status: storage.RunCompleted}))

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{"health_check", "GET", "/health", "", http.StatusOK},
		{"trigger_run_missing_fields", "POST", "/api/runs/", `{}`, http.StatusBadRequest},
		{"list_runs", "GET", "/api/runs/", "", http.StatusOK},
		{"get_run_status", "GET", "/api/runs/abc", "", http.StatusOK},
		{"get_run_status_missing", "GET", "/api/runs/does-not-exist", "", http.StatusInternalServerError},
		{"get_run_outputs", "GET", "/api/runs/abc/outputs", "", http.StatusOK},
		{"not_found", "GET", "/api/nonexistent", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *bytes.Reader
			if tt.body != "" {
				body = bytes.NewReader([]byte(tt.body))
			} else {
				body = bytes.NewReader(nil)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			require.Equal(t, tt.expectedStatus, rr.Code, "%s %s: %s", tt.method, tt.path, rr.Body.String())
		})
	}
}

func TestTriggerRunAcceptsValidRequest(t *testing.T) {
	called := make(chan struct{})
	store, err := storage.Open(lgr.NoOp, storage.Config{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	server := NewServer(&fakeRunner{called: called}, store, lgr.NoOp, &config.Config{})
	handler := server.SetupRoutes()

	reqBody := map[string]interface{}{
		"secret":     "0x01",
		"app":        "0x02",
		"startIndex": 0,
		"maxIndices": 16,
		"batchSize":  16,
		"oracleAddr": "0x03",
		"assetsSlot": "0x04",
	}
	data, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/runs/", bytes.NewReader(data))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["runId"])

	<-called
}
