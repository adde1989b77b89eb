// Package pnlerrors defines the typed error taxonomy shared by every stage
// of the pipeline, so callers can branch on failure kind with errors.Is /
// errors.As instead of string matching.
package pnlerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying each taxonomy member. Wrap with fmt.Errorf's
// %w, or use the constructors below which attach context.
var (
	ErrTagDiscovery             = errors.New("tag discovery failed")
	ErrDecrypt                  = errors.New("ciphertext decryption failed")
	ErrLotTreeFull              = errors.New("lot-state tree has no free slot")
	ErrAssertionViolated        = errors.New("assertion violated")
	ErrOracleWitnessUnavailable = errors.New("oracle witness unavailable")
	ErrProverFailure            = errors.New("prover failure")
	ErrTimeout                  = errors.New("external call timed out")
	ErrInvalidInput             = errors.New("invalid input")
)

// AssertionKind names which mirrored circuit assertion failed.
type AssertionKind string

const (
	AssertionChronology        AssertionKind = "chronology"
	AssertionOracleMismatch    AssertionKind = "oracle_mismatch"
	AssertionFIFOUnderConsumed AssertionKind = "fifo_under_consumption"
	AssertionRootChainMismatch AssertionKind = "root_chain_mismatch"
)

// ProverStage names which external prover call failed.
type ProverStage string

const (
	ProverStageExecute       ProverStage = "execute"
	ProverStageGenerateProof ProverStage = "generate_proof"
	ProverStageVerify        ProverStage = "verify"
	ProverStageVKExtraction  ProverStage = "vk_extraction"
)

// PipelineError attaches the swap index and aggregation level a failure
// occurred at, matching the "which swap index, which level" context the
// error-handling policy requires of every propagated error.
type PipelineError struct {
	Kind       error
	SwapIndex  int // -1 if not applicable
	Level      int // -1 if not applicable
	Assertion  AssertionKind
	ProverStep ProverStage
	Detail     string
	cause      error
}

func (e *PipelineError) Error() string {
	msg := e.Kind.Error()
	if e.Assertion != "" {
		msg = fmt.Sprintf("%s(%s)", msg, e.Assertion)
	}
	if e.ProverStep != "" {
		msg = fmt.Sprintf("%s(%s)", msg, e.ProverStep)
	}
	if e.SwapIndex >= 0 {
		msg = fmt.Sprintf("%s [swap %d]", msg, e.SwapIndex)
	}
	if e.Level >= 0 {
		msg = fmt.Sprintf("%s [level %d]", msg, e.Level)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *PipelineError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func newErr(kind error) *PipelineError {
	return &PipelineError{Kind: kind, SwapIndex: -1, Level: -1}
}

// WithSwap returns a copy of e annotated with the swap index it occurred at.
func (e *PipelineError) WithSwap(index int) *PipelineError {
	c := *e
	c.SwapIndex = index
	return &c
}

// WithLevel returns a copy of e annotated with the aggregation level it
// occurred at.
func (e *PipelineError) WithLevel(level int) *PipelineError {
	c := *e
	c.Level = level
	return &c
}

// WithCause returns a copy of e wrapping the underlying error from the
// external callee, propagated unchanged per the error-handling policy.
func (e *PipelineError) WithCause(cause error) *PipelineError {
	c := *e
	c.cause = cause
	return &c
}

// WithDetail returns a copy of e with a human-readable detail string.
func (e *PipelineError) WithDetail(format string, args ...any) *PipelineError {
	c := *e
	c.Detail = fmt.Sprintf(format, args...)
	return &c
}

// TagDiscovery constructs a tag-discovery failure.
func TagDiscovery(cause error) *PipelineError {
	return newErr(ErrTagDiscovery).WithCause(cause)
}

// Decrypt constructs a decryption failure.
func Decrypt(detail string) *PipelineError {
	return newErr(ErrDecrypt).WithDetail("%s", detail)
}

// LotTreeFull constructs the fatal lot-tree-exhaustion error: more than
// NumSlots distinct tokens were encountered.
func LotTreeFull() *PipelineError {
	return newErr(ErrLotTreeFull)
}

// Assertion constructs a fatal mirrored-circuit assertion failure.
func Assertion(kind AssertionKind) *PipelineError {
	e := newErr(ErrAssertionViolated)
	e.Assertion = kind
	return e
}

// OracleWitnessUnavailable constructs a failure to fetch a public-data
// witness for the requested (oracle, token, block).
func OracleWitnessUnavailable(cause error) *PipelineError {
	return newErr(ErrOracleWitnessUnavailable).WithCause(cause)
}

// ProverFailure constructs a failure at a named stage of the external
// prover protocol.
func ProverFailure(stage ProverStage, cause error) *PipelineError {
	e := newErr(ErrProverFailure).WithCause(cause)
	e.ProverStep = stage
	return e
}

// Timeout constructs a timeout on an external suspension point.
func Timeout(cause error) *PipelineError {
	return newErr(ErrTimeout).WithCause(cause)
}

// InvalidInput constructs an input-validation failure, e.g. plaintext
// extraction out of range.
func InvalidInput(detail string) *PipelineError {
	return newErr(ErrInvalidInput).WithDetail("%s", detail)
}
