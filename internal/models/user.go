package models

import "time"

// User roles. TREASURY is reserved for the single platform account that
// collects brokerage fees.
const (
	RoleBuyer    = "BUYER"
	RoleSeller   = "SELLER"
	RoleTreasury = "TREASURY"
	RoleAdmin    = "ADMIN"
)

type User struct {
	ID        int64      `json:"id" example:"1"`                   // User ID
	Email     string     `json:"email" example:"user@example.com"` // User email
	Name      string     `json:"name" example:"John Doe"`          // Display name
	Role      string     `json:"role" example:"BUYER"`             // BUYER, SELLER or TREASURY
	Blocked   bool       `json:"blocked"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
