package service

import (
	"sync"

	"github.com/Dan9191/bank-ledger/internal/ledger"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Ledger is the boundary wrapper around the ledger engine. The engine itself
// performs no locking; this wrapper serializes all calls so concurrent HTTP
// requests cannot interleave mutations on the same ledger.
type Ledger struct {
	mu     sync.Mutex
	engine *ledger.Engine
}

// NewLedger wraps an engine for use by the HTTP layer.
func NewLedger(engine *ledger.Engine) *Ledger {
	return &Ledger{engine: engine}
}

// Balance returns the user's current balance.
func (l *Ledger) Balance(userID string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.GetBalance(userID)
}

// Transactions returns the user's transactions, most recent first.
func (l *Ledger) Transactions(userID string) ([]models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.GetTransactions(userID)
}

// Add records a new deposit or withdrawal.
func (l *Ledger) Add(userID string, txType models.TransactionType, amount decimal.Decimal, description string) (models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.AddTransaction(userID, txType, amount, description)
}

// Update edits an existing transaction's amount and description.
func (l *Ledger) Update(userID string, transactionID int64, amount decimal.Decimal, description string) (models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.UpdateTransaction(userID, transactionID, amount, description)
}

// Delete removes a transaction.
func (l *Ledger) Delete(userID string, transactionID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.DeleteTransaction(userID, transactionID)
}

// Clear resets the user's ledger.
func (l *Ledger) Clear(userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Clear(userID)
}
