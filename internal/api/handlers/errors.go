package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
)

// ErrorResponse is the structure of every error response the API returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details string `json:"details,omitempty"`
}

// writeErrorResponse writes a structured error response, mapping the
// pnlerrors taxonomy onto HTTP status codes.
func writeErrorResponse(w http.ResponseWriter, err error, message string) {
	w.Header().Set("Content-Type", "application/json")

	status := statusForError(err)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{ //nolint:errcheck
		Error:   message,
		Code:    status,
		Details: err.Error(),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, pnlerrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, pnlerrors.ErrTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, pnlerrors.ErrOracleWitnessUnavailable),
		errors.Is(err, pnlerrors.ErrProverFailure),
		errors.Is(err, pnlerrors.ErrTagDiscovery):
		return http.StatusBadGateway
	case errors.Is(err, pnlerrors.ErrDecrypt),
		errors.Is(err, pnlerrors.ErrLotTreeFull),
		errors.Is(err, pnlerrors.ErrAssertionViolated):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
