// Package ledger implements the per-user transaction ledger and balance
// engine. Each user owns an ordered transaction sequence (most recent first)
// and a cached balance that is always recomputed by summing deposits minus
// withdrawals over the current sequence, never by incremental deltas. Every
// mutation is all-or-nothing: validation failures and persistence failures
// leave the in-memory ledger exactly as it was.
//
// The engine performs no internal locking. Callers must serialize calls for
// the same user.
package ledger

import (
	"fmt"
	"time"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxAmount is the per-transaction ceiling. Amounts above it are rejected.
var maxAmount = decimal.NewFromInt(100_000)

// SessionProvider reports whether a user currently holds a live session. The
// engine consults it to gate mutating operations; it never manages sessions
// itself.
type SessionProvider interface {
	IsAuthenticated(userID string) bool
}

// accountLedger is the in-memory state for one user. Transactions are kept
// newest first.
type accountLedger struct {
	transactions []models.Transaction
	balance      decimal.Decimal
}

// Engine holds all resident account ledgers keyed by user ID. Ledgers are
// loaded lazily from the snapshot store on first access and written back
// after every successful mutation.
type Engine struct {
	store    storage.SnapshotStore
	sessions SessionProvider
	log      *logrus.Logger
	ledgers  map[string]*accountLedger
	lastID   int64
	now      func() time.Time
}

// NewEngine initializes a ledger engine on top of the given snapshot store
// and session provider.
func NewEngine(store storage.SnapshotStore, sessions SessionProvider, log *logrus.Logger) *Engine {
	return &Engine{
		store:    store,
		sessions: sessions,
		log:      log,
		ledgers:  make(map[string]*accountLedger),
		now:      time.Now,
	}
}

// ledgerFor returns the resident ledger for the user, loading it from the
// store on first access. A user with no stored snapshot starts with an empty
// ledger; nothing is written until the first mutation. The balance is always
// re-derived from the loaded transactions rather than trusted from the
// snapshot, so a drifted stored balance heals itself on load.
func (e *Engine) ledgerFor(userID string) (*accountLedger, error) {
	if l, ok := e.ledgers[userID]; ok {
		return l, nil
	}

	l := &accountLedger{balance: decimal.Zero}
	snap, found, err := e.store.Load(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger for user %s: %w", userID, err)
	}
	if found {
		l.transactions = snap.Transactions
		l.balance = sumTransactions(snap.Transactions)
	}
	e.ledgers[userID] = l
	return l, nil
}

// sumTransactions derives a balance from scratch: deposits add, withdrawals
// subtract. This is the single source of truth for balances.
func sumTransactions(transactions []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range transactions {
		switch tx.Type {
		case models.TypeDeposit:
			total = total.Add(tx.Amount)
		case models.TypeWithdraw:
			total = total.Sub(tx.Amount)
		}
	}
	return total
}

// checkAmount validates the shared amount-range rules. Zero is legal.
func checkAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if amount.GreaterThan(maxAmount) {
		return ErrAmountExceedsLimit
	}
	return nil
}

// nextID issues a unique, monotonically increasing transaction ID based on
// the current time in milliseconds. Same-millisecond calls fall back to the
// previous ID plus one so insertion order breaks ties.
func (e *Engine) nextID() int64 {
	id := e.now().UnixMilli()
	if id <= e.lastID {
		id = e.lastID + 1
	}
	e.lastID = id
	return id
}

// commit recomputes the balance for the proposed transaction sequence,
// persists the snapshot, and only then installs the new state in memory. A
// persistence failure therefore leaves the ledger untouched.
func (e *Engine) commit(userID string, l *accountLedger, transactions []models.Transaction) error {
	balance := sumTransactions(transactions)
	snap := models.Snapshot{Transactions: transactions, Balance: balance}
	if err := e.store.Save(userID, snap); err != nil {
		return fmt.Errorf("failed to persist ledger for user %s: %w", userID, err)
	}
	l.transactions = transactions
	l.balance = balance
	return nil
}

// GetBalance returns the user's current balance. Aside from the lazy load of
// a non-resident ledger it has no side effects.
func (e *Engine) GetBalance(userID string) (decimal.Decimal, error) {
	l, err := e.ledgerFor(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return l.balance, nil
}

// GetTransactions returns the user's transactions, most recent first. The
// returned slice is a copy; mutating it does not affect the ledger.
func (e *Engine) GetTransactions(userID string) ([]models.Transaction, error) {
	l, err := e.ledgerFor(userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out, nil
}

// AddTransaction validates and records a new deposit or withdrawal at the
// head of the user's ledger, recomputes the balance, and persists the
// snapshot. It returns the created transaction.
func (e *Engine) AddTransaction(userID string, txType models.TransactionType, amount decimal.Decimal, description string) (models.Transaction, error) {
	if !e.sessions.IsAuthenticated(userID) {
		return models.Transaction{}, ErrUnauthenticated
	}
	if err := checkAmount(amount); err != nil {
		return models.Transaction{}, err
	}

	l, err := e.ledgerFor(userID)
	if err != nil {
		return models.Transaction{}, err
	}

	if txType == models.TypeWithdraw && l.balance.Sub(amount).IsNegative() {
		return models.Transaction{}, ErrInsufficientFunds
	}

	tx := models.Transaction{
		ID:          e.nextID(),
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Date:        e.now().UTC(),
		Description: description,
	}

	next := append([]models.Transaction{tx}, l.transactions...)
	if err := e.commit(userID, l, next); err != nil {
		return models.Transaction{}, err
	}

	e.log.Infof("Transaction %d added for user %s: %s %s", tx.ID, userID, tx.Type, tx.Amount)
	return tx, nil
}

// UpdateTransaction replaces the amount and description of an existing
// transaction. The updated copy keeps its ID, gets a refreshed timestamp, and
// moves to the head of the sequence. Before mutating, the engine simulates
// the balance with the original contribution reversed and the new amount
// applied; if that simulated balance is negative the edit is rejected.
func (e *Engine) UpdateTransaction(userID string, transactionID int64, newAmount decimal.Decimal, newDescription string) (models.Transaction, error) {
	if !e.sessions.IsAuthenticated(userID) {
		return models.Transaction{}, ErrUnauthenticated
	}
	if err := checkAmount(newAmount); err != nil {
		return models.Transaction{}, err
	}

	l, err := e.ledgerFor(userID)
	if err != nil {
		return models.Transaction{}, err
	}

	idx := findTransaction(l.transactions, transactionID)
	if idx < 0 {
		return models.Transaction{}, ErrTransactionNotFound
	}
	original := l.transactions[idx]

	simulated := sumTransactions(l.transactions)
	switch original.Type {
	case models.TypeDeposit:
		simulated = simulated.Sub(original.Amount).Add(newAmount)
	case models.TypeWithdraw:
		simulated = simulated.Add(original.Amount).Sub(newAmount)
	}
	if simulated.IsNegative() {
		return models.Transaction{}, ErrInsufficientFunds
	}

	updated := original
	updated.Amount = newAmount
	updated.Description = newDescription
	updated.Date = e.now().UTC()

	next := make([]models.Transaction, 0, len(l.transactions))
	next = append(next, updated)
	next = append(next, l.transactions[:idx]...)
	next = append(next, l.transactions[idx+1:]...)
	if err := e.commit(userID, l, next); err != nil {
		return models.Transaction{}, err
	}

	e.log.Infof("Transaction %d updated for user %s: %s %s", updated.ID, userID, updated.Type, updated.Amount)
	return updated, nil
}

// DeleteTransaction removes a transaction from the user's ledger. Removing a
// deposit is refused when it would drive the recomputed balance negative;
// removing a withdrawal can only raise the balance and is always allowed.
func (e *Engine) DeleteTransaction(userID string, transactionID int64) error {
	if !e.sessions.IsAuthenticated(userID) {
		return ErrUnauthenticated
	}

	l, err := e.ledgerFor(userID)
	if err != nil {
		return err
	}

	idx := findTransaction(l.transactions, transactionID)
	if idx < 0 {
		return ErrTransactionNotFound
	}
	tx := l.transactions[idx]

	if tx.Type == models.TypeDeposit {
		if sumTransactions(l.transactions).Sub(tx.Amount).IsNegative() {
			return ErrBalanceWouldGoNegative
		}
	}

	next := make([]models.Transaction, 0, len(l.transactions)-1)
	next = append(next, l.transactions[:idx]...)
	next = append(next, l.transactions[idx+1:]...)
	if err := e.commit(userID, l, next); err != nil {
		return err
	}

	e.log.Infof("Transaction %d deleted for user %s", transactionID, userID)
	return nil
}

// Clear resets the user's ledger to an empty sequence and a zero balance and
// persists the empty snapshot. Used on account reset.
func (e *Engine) Clear(userID string) error {
	if !e.sessions.IsAuthenticated(userID) {
		return ErrUnauthenticated
	}

	l, err := e.ledgerFor(userID)
	if err != nil {
		return err
	}

	if err := e.commit(userID, l, []models.Transaction{}); err != nil {
		return err
	}

	e.log.Infof("Ledger cleared for user %s", userID)
	return nil
}

func findTransaction(transactions []models.Transaction, id int64) int {
	for i := range transactions {
		if transactions[i].ID == id {
			return i
		}
	}
	return -1
}
