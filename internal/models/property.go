package models

import "time"

// Property is a sellable listing. Committed flips false -> true exactly
// once, as part of the finalization transaction of the deal that buys it,
// and never reverts.
type Property struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Price       int64     `json:"price" db:"price"` // minor units, positive
	Location    string    `json:"location" db:"location"`
	ImageURL    string    `json:"image_url,omitempty" db:"image_url"`
	SellerID    int64     `json:"seller_id" db:"seller_id"` // seller account
	Committed   bool      `json:"committed" db:"committed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Favourite links a buyer account to a property, unique per pair.
type Favourite struct {
	ID         int64     `json:"id" db:"id"`
	AccountID  int64     `json:"account_id" db:"account_id"`
	PropertyID int64     `json:"property_id" db:"property_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
