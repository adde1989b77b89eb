// Package prover is the client for the external zero-knowledge proving
// backend (spec.md §6, "Prover backend (consumed)"): witness execution,
// proof generation, local verification and recursive verifier-key
// artifact extraction. The circuit itself is out of scope; this package
// only drives the backend's small, stable API.
package prover

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
)

// VerifierTarget names which circuit a proof operation targets. Level 0
// swap proofs use Leaf; every aggregation level above that uses Summary.
type VerifierTarget string

const (
	Leaf    VerifierTarget = "leaf"
	Summary VerifierTarget = "summary"
)

// Witness is an opaque execution trace handed back by Execute and
// consumed by GenerateProof; the core never inspects its contents.
type Witness struct {
	Raw json.RawMessage
}

// ExecuteResult is the circuit's declared public output vector alongside
// the witness needed to generate a proof from it.
type ExecuteResult struct {
	Witness       Witness
	PublicOutputs []field.Element
}

// ProofArtifact is a generated proof and the public inputs it was bound to.
type ProofArtifact struct {
	Proof        []byte
	PublicInputs []field.Element
}

// RecursiveVKArtifact carries a circuit's verifier key in both its
// field-vector and hashed forms, as required by the summary combinator's
// admissible-vk check.
type RecursiveVKArtifact struct {
	VKAsFields []field.Element
	VKHash     field.Element
}

// Client is the interface the swap driver and aggregator consume.
type Client interface {
	Execute(ctx context.Context, target VerifierTarget, inputs any) (ExecuteResult, error)
	GenerateProof(ctx context.Context, witness Witness, target VerifierTarget) (ProofArtifact, error)
	VerifyProof(ctx context.Context, proof []byte, target VerifierTarget) (bool, error)
	GenerateRecursiveProofArtifacts(ctx context.Context, proof []byte, nPublicInputs int) (RecursiveVKArtifact, error)
}

// Config configures the HTTP-backed prover client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClient is the Client implementation talking to a prover backend over
// plain JSON-over-HTTP, the same request/response shape the rest of this
// codebase's external clients use.
type HTTPClient struct {
	cfg    Config
	client *http.Client
}

// NewHTTPClient builds a prover client against cfg.BaseURL.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("prover: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPClient{cfg: cfg, client: &http.Client{Timeout: timeout}}, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("prover: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("prover: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prover: %s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type executeRequest struct {
	Target VerifierTarget `json:"target"`
	Inputs any            `json:"inputs"`
}

type executeResponse struct {
	Witness      json.RawMessage `json:"witness"`
	ReturnValues []string        `json:"returnValues"`
}

func (c *HTTPClient) Execute(ctx context.Context, target VerifierTarget, inputs any) (ExecuteResult, error) {
	var resp executeResponse
	if err := c.post(ctx, "/execute", executeRequest{Target: target, Inputs: inputs}, &resp); err != nil {
		return ExecuteResult{}, pnlerrors.ProverFailure(pnlerrors.ProverStageExecute, err)
	}
	outputs, err := parseFields(resp.ReturnValues)
	if err != nil {
		return ExecuteResult{}, pnlerrors.ProverFailure(pnlerrors.ProverStageExecute, err)
	}
	return ExecuteResult{Witness: Witness{Raw: resp.Witness}, PublicOutputs: outputs}, nil
}

type generateProofRequest struct {
	Witness json.RawMessage `json:"witness"`
	Target  VerifierTarget  `json:"target"`
}

type generateProofResponse struct {
	Proof        string   `json:"proof"`
	PublicInputs []string `json:"publicInputs"`
}

func (c *HTTPClient) GenerateProof(ctx context.Context, witness Witness, target VerifierTarget) (ProofArtifact, error) {
	var resp generateProofResponse
	req := generateProofRequest{Witness: witness.Raw, Target: target}
	if err := c.post(ctx, "/generate-proof", req, &resp); err != nil {
		return ProofArtifact{}, pnlerrors.ProverFailure(pnlerrors.ProverStageGenerateProof, err)
	}
	proofBytes, err := decodeHex(resp.Proof)
	if err != nil {
		return ProofArtifact{}, pnlerrors.ProverFailure(pnlerrors.ProverStageGenerateProof, err)
	}
	inputs, err := parseFields(resp.PublicInputs)
	if err != nil {
		return ProofArtifact{}, pnlerrors.ProverFailure(pnlerrors.ProverStageGenerateProof, err)
	}
	return ProofArtifact{Proof: proofBytes, PublicInputs: inputs}, nil
}

type verifyProofRequest struct {
	Proof  string         `json:"proof"`
	Target VerifierTarget `json:"target"`
}

type verifyProofResponse struct {
	Valid bool `json:"valid"`
}

func (c *HTTPClient) VerifyProof(ctx context.Context, proof []byte, target VerifierTarget) (bool, error) {
	var resp verifyProofResponse
	req := verifyProofRequest{Proof: encodeHex(proof), Target: target}
	if err := c.post(ctx, "/verify-proof", req, &resp); err != nil {
		return false, pnlerrors.ProverFailure(pnlerrors.ProverStageVerify, err)
	}
	return resp.Valid, nil
}

type recursiveArtifactsRequest struct {
	Proof         string `json:"proof"`
	NPublicInputs int    `json:"nPublicInputs"`
}

type recursiveArtifactsResponse struct {
	VKAsFields []string `json:"vkAsFields"`
	VKHash     string   `json:"vkHash"`
}

func (c *HTTPClient) GenerateRecursiveProofArtifacts(ctx context.Context, proof []byte, nPublicInputs int) (RecursiveVKArtifact, error) {
	var resp recursiveArtifactsResponse
	req := recursiveArtifactsRequest{Proof: encodeHex(proof), NPublicInputs: nPublicInputs}
	if err := c.post(ctx, "/recursive-artifacts", req, &resp); err != nil {
		return RecursiveVKArtifact{}, pnlerrors.ProverFailure(pnlerrors.ProverStageVKExtraction, err)
	}
	vkFields, err := parseFields(resp.VKAsFields)
	if err != nil {
		return RecursiveVKArtifact{}, pnlerrors.ProverFailure(pnlerrors.ProverStageVKExtraction, err)
	}
	vkHash, err := field.ParseHex(resp.VKHash)
	if err != nil {
		return RecursiveVKArtifact{}, pnlerrors.ProverFailure(pnlerrors.ProverStageVKExtraction, err)
	}
	return RecursiveVKArtifact{VKAsFields: vkFields, VKHash: vkHash}, nil
}

func parseFields(hexes []string) ([]field.Element, error) {
	out := make([]field.Element, len(hexes))
	for i, h := range hexes {
		f, err := field.ParseHex(h)
		if err != nil {
			return nil, fmt.Errorf("parse field %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return hex.DecodeString(s)
}

func encodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

var _ Client = (*HTTPClient)(nil)
