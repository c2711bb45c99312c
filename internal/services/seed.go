package services

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/propmarket/backend/internal/config"
	"github.com/propmarket/backend/internal/models"
)

// SeedDemoData populates an empty database with the treasury account and a
// demo marketplace. Runs once; a non-empty users table disables it.
func SeedDemoData(db *sql.DB, cfg *config.DealConfig) error {
	if !cfg.SeedDemoData {
		return nil
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check users table: %w", err)
	}
	if count > 0 {
		return nil
	}

	log.Printf("[SEED] Empty database, seeding demo data")

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seedUser := func(email, name, userRole, accountRole string, balance int64) (int64, error) {
		hashed, err := hashPassword("password123")
		if err != nil {
			return 0, err
		}

		var userID int64
		err = tx.QueryRow(`
			INSERT INTO users (email, password, name, role, blocked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, FALSE, NOW(), NOW())
			RETURNING id`,
			email, hashed, name, userRole).Scan(&userID)
		if err != nil {
			return 0, err
		}

		_, err = tx.Exec(`
			INSERT INTO accounts (user_id, role, balance, version, updated_at)
			VALUES ($1, $2, $3, 1, NOW())`,
			userID, accountRole, balance)
		return userID, err
	}

	if _, err := seedUser("treasury@propmarket.test", "Platform Treasury", models.RoleTreasury, models.RoleTreasury, 0); err != nil {
		return fmt.Errorf("failed to seed treasury: %w", err)
	}

	if _, err := seedUser("admin@propmarket.test", "Marketplace Admin", models.RoleAdmin, models.RoleAdmin, 0); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	sellerID, err := seedUser("seller@propmarket.test", "Demo Seller", models.RoleSeller, models.RoleSeller, 1500)
	if err != nil {
		return fmt.Errorf("failed to seed seller: %w", err)
	}

	if _, err := seedUser("buyer@propmarket.test", "Demo Buyer", models.RoleBuyer, models.RoleBuyer, 1500); err != nil {
		return fmt.Errorf("failed to seed buyer: %w", err)
	}

	if _, err := seedUser("techseeker@propmarket.test", "Tech Seeker", models.RoleSeller, models.RoleSeller, 1000); err != nil {
		return fmt.Errorf("failed to seed second seller: %w", err)
	}

	var sellerAccountID int64
	if err := tx.QueryRow(`SELECT id FROM accounts WHERE user_id = $1`, sellerID).Scan(&sellerAccountID); err != nil {
		return fmt.Errorf("failed to resolve seller account: %w", err)
	}

	properties := []struct {
		title, description, location string
		price                        int64
	}{
		{"Beautiful House", "A beautiful 3BHK house in prime location", "Downtown", 150},
		{"Modern Apartment", "Modern 2BHK apartment with all amenities", "City Center", 200},
	}

	for _, p := range properties {
		_, err := tx.Exec(`
			INSERT INTO properties (title, description, location, price, image_url, seller_id, committed, created_at)
			VALUES ($1, $2, $3, $4, NULL, $5, FALSE, NOW())`,
			p.title, p.description, p.location, p.price, sellerAccountID)
		if err != nil {
			return fmt.Errorf("failed to seed property %q: %w", p.title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("[SEED] Demo data seeded: treasury, admin, 2 sellers, 1 buyer, 2 properties")
	return nil
}
