package models

import "time"

// Ledger entry kinds.
const (
	EntryDebit  = "DEBIT"
	EntryCredit = "CREDIT"
)

// LedgerEntry is one immutable signed movement against one account,
// produced by a completed deal. Amount is negative for debits and positive
// for credits; Balance is the account balance after the movement. The
// entries of one deal sum to zero across all accounts.
type LedgerEntry struct {
	ID          int64     `json:"id" db:"id"`
	DealID      int64     `json:"deal_id" db:"deal_id"`
	AccountID   int64     `json:"account_id" db:"account_id"`
	Amount      int64     `json:"amount" db:"amount"` // signed, minor units
	EntryType   string    `json:"entry_type" db:"entry_type"`
	Description string    `json:"description" db:"description"`
	Balance     int64     `json:"balance" db:"balance"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
