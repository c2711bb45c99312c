package models

import "time"

// Account holds a party's wallet balance in minor currency units.
// Balances are mutated only by the ledger service inside a database
// transaction; Version backs the optimistic-lock update protocol.
type Account struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	Balance   int64     `json:"balance" db:"balance"` // minor units, never negative
	Version   int       `json:"version" db:"version"` // for optimistic locking
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
