package prover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotpnl/pnl-proof-host/internal/field"
)

func newFakeProver(t *testing.T, handlers map[string]func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		require.True(t, ok, "unexpected path %s", r.URL.Path)
		h(w, r)
	}))
}

func TestExecuteReturnsPublicOutputs(t *testing.T) {
	out := field.FromUint64(123)
	srv := newFakeProver(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"/execute": func(w http.ResponseWriter, r *http.Request) {
			var req executeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, Leaf, req.Target)
			json.NewEncoder(w).Encode(executeResponse{
				Witness:      json.RawMessage(`{"trace":"abc"}`),
				ReturnValues: []string{out.Hex()},
			})
		},
	})
	defer srv.Close()

	c, err := NewHTTPClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	res, err := c.Execute(context.Background(), Leaf, map[string]int{"a": 1})
	require.NoError(t, err)
	require.Len(t, res.PublicOutputs, 1)
	assert.True(t, res.PublicOutputs[0].Equal(out))
}

func TestVerifyProofReturnsBackendVerdict(t *testing.T) {
	srv := newFakeProver(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"/verify-proof": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(verifyProofResponse{Valid: true})
		},
	})
	defer srv.Close()

	c, err := NewHTTPClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	ok, err := c.VerifyProof(context.Background(), []byte{1, 2, 3}, Summary)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGenerateRecursiveProofArtifactsDecodesVK(t *testing.T) {
	vk0 := field.FromUint64(1)
	vk1 := field.FromUint64(2)
	hash := field.FromUint64(9999)
	srv := newFakeProver(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"/recursive-artifacts": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(recursiveArtifactsResponse{
				VKAsFields: []string{vk0.Hex(), vk1.Hex()},
				VKHash:     hash.Hex(),
			})
		},
	})
	defer srv.Close()

	c, err := NewHTTPClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	artifact, err := c.GenerateRecursiveProofArtifacts(context.Background(), []byte{1}, 6)
	require.NoError(t, err)
	require.Len(t, artifact.VKAsFields, 2)
	assert.True(t, artifact.VKHash.Equal(hash))
}

func TestExecutePropagatesBackendErrorAsProverFailure(t *testing.T) {
	srv := newFakeProver(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"/execute": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	defer srv.Close()

	c, err := NewHTTPClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), Leaf, nil)
	require.Error(t, err)
}
