package ledger

import "errors"

// Domain errors returned by the engine. Every validation failure aborts the
// operation before any mutation, so a caller seeing one of these can assume
// the ledger is unchanged.
var (
	// ErrUnauthenticated is returned when the user has no live session.
	ErrUnauthenticated = errors.New("please log in before transacting")

	// ErrNegativeAmount is returned when the supplied amount is below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrAmountExceedsLimit is returned when the supplied amount exceeds the
	// per-transaction ceiling.
	ErrAmountExceedsLimit = errors.New("amount must not exceed 100000")

	// ErrInsufficientFunds is returned when a withdrawal or an edit would
	// drive the balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBalanceWouldGoNegative is returned when deleting a deposit would
	// drive the balance below zero.
	ErrBalanceWouldGoNegative = errors.New("cannot delete this deposit: balance would go negative")

	// ErrTransactionNotFound is returned when the referenced transaction does
	// not exist in the user's ledger.
	ErrTransactionNotFound = errors.New("transaction not found")
)
