package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money moving into or out of an account.
type TransactionType string

const (
	TypeDeposit  TransactionType = "deposit"
	TypeWithdraw TransactionType = "withdraw"
)

// Transaction represents a single entry in a user's ledger
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
}
