package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Dan9191/bank-ledger/internal/middleware"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type transactionRequest struct {
	Type        models.TransactionType `json:"type"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description"`
}

// Balance returns the current user's balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	balance, err := h.ledger.Balance(userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

// Transactions returns the current user's transactions, most recent first
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	transactions, err := h.ledger.Transactions(userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}

// AddTransaction records a new deposit or withdrawal
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type != models.TypeDeposit && req.Type != models.TypeWithdraw {
		writeError(w, http.StatusBadRequest, "type must be deposit or withdraw")
		return
	}

	tx, err := h.ledger.Add(userID, req.Type, req.Amount, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// UpdateTransaction edits an existing transaction's amount and description
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	transactionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.ledger.Update(userID, transactionID, req.Amount, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// DeleteTransaction removes a transaction
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	transactionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := h.ledger.Delete(userID, transactionID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ClearTransactions resets the current user's ledger
func (h *Handler) ClearTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.ledger.Clear(userID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
