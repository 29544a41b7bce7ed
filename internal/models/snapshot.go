package models

import "github.com/shopspring/decimal"

// Snapshot is the persisted state of one user's ledger: the transaction
// sequence (most recent first) and the cached balance.
type Snapshot struct {
	Transactions []Transaction   `json:"transactions"`
	Balance      decimal.Decimal `json:"balance"`
}
