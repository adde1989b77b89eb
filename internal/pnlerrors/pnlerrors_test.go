package pnlerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLotTreeFullIsSentinel(t *testing.T) {
	err := LotTreeFull()
	assert.True(t, errors.Is(err, ErrLotTreeFull))
}

func TestAssertionCarriesKind(t *testing.T) {
	err := Assertion(AssertionChronology)
	assert.True(t, errors.Is(err, ErrAssertionViolated))
	assert.Contains(t, err.Error(), "chronology")
}

func TestProverFailureCarriesStageAndCause(t *testing.T) {
	cause := errors.New("rpc dropped")
	err := ProverFailure(ProverStageGenerateProof, cause)
	assert.True(t, errors.Is(err, ErrProverFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "generate_proof")
}

func TestWithSwapAndLevelAnnotate(t *testing.T) {
	base := Assertion(AssertionRootChainMismatch)
	annotated := base.WithSwap(3).WithLevel(1)
	assert.Contains(t, annotated.Error(), "swap 3")
	assert.Contains(t, annotated.Error(), "level 1")
	assert.NotContains(t, base.Error(), "swap 3", "WithSwap must not mutate the receiver")
}

func TestInvalidInputDetail(t *testing.T) {
	err := InvalidInput("amount_in out of range")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "amount_in out of range")
}
