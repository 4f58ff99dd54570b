package api

import (
	"errors"
	"net/http"

	"github.com/RyanDutko/Bet-Ledger/internal/ledger"
	"github.com/RyanDutko/Bet-Ledger/internal/service"

	"gorm.io/gorm"
)

// statusForError maps business errors to HTTP statuses. Validation failures
// are the client's fault, settlement conflicts are 409, anything unknown
// stays a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadySettled),
		errors.Is(err, ledger.ErrConcurrentSettlement):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidOdds),
		errors.Is(err, ledger.ErrInvalidStake),
		errors.Is(err, ledger.ErrShareMismatch),
		errors.Is(err, ledger.ErrUnknownLegResult),
		errors.Is(err, ledger.ErrUnresolved),
		errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
