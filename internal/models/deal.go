package models

import "time"

// Deal statuses. ACCEPTED exists only inside the finalization transaction;
// a deal observed outside it is PENDING, REJECTED, COMPLETED or FAILED.
const (
	DealPending   = "PENDING"
	DealAccepted  = "ACCEPTED"
	DealRejected  = "REJECTED"
	DealCompleted = "COMPLETED"
	DealFailed    = "FAILED"
)

// Deal is a single purchase intent. Amount is copied from the property
// price at request time and never changes afterwards. Deals are retained
// for audit and never deleted.
type Deal struct {
	ID          int64      `json:"id" db:"id"`
	PropertyID  int64      `json:"property_id" db:"property_id"`
	BuyerID     int64      `json:"buyer_id" db:"buyer_id"`   // buyer account
	SellerID    int64      `json:"seller_id" db:"seller_id"` // seller account
	Amount      int64      `json:"amount" db:"amount"`       // minor units
	Status      string     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
