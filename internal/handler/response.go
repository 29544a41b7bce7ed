package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dan9191/bank-ledger/internal/ledger"
	"github.com/Dan9191/bank-ledger/internal/service"
	"github.com/Dan9191/bank-ledger/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps domain errors to HTTP status codes and writes the
// error message as JSON.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnauthenticated),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrNegativeAmount),
		errors.Is(err, ledger.ErrAmountExceedsLimit):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrBalanceWouldGoNegative),
		errors.Is(err, storage.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, storage.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
