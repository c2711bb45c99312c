package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/propmarket/backend/internal/config"
	"github.com/propmarket/backend/internal/models"
)

// LedgerService applies the balance movement of a finalized deal: the
// property price from buyer to seller plus a flat brokerage fee from each
// side to the treasury, recorded as five ledger entries. Everything runs
// inside the caller's database transaction so that balances, the property
// commit, the deal status and the ledger land atomically or not at all.
type LedgerService struct {
	db           *sql.DB
	brokerageFee int64
	treasuryID   int64
}

// NewLedgerService resolves the treasury account once, at construction.
// The treasury is a singleton identified by role; per-operation scans are
// deliberately avoided.
func NewLedgerService(db *sql.DB, cfg *config.DealConfig) (*LedgerService, error) {
	var treasuryID int64
	err := db.QueryRow(`
		SELECT id FROM accounts WHERE role = $1 ORDER BY id LIMIT 1`,
		models.RoleTreasury).Scan(&treasuryID)
	if err == sql.ErrNoRows {
		return nil, ErrTreasuryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving treasury account: %w", err)
	}

	return &LedgerService{
		db:           db,
		brokerageFee: cfg.BrokerageFee,
		treasuryID:   treasuryID,
	}, nil
}

// TreasuryID exposes the resolved treasury account for read paths.
func (s *LedgerService) TreasuryID() int64 {
	return s.treasuryID
}

// FinalizeDealTx validates and applies the four-leg transfer for deal
// inside tx, then commits the property and completes the deal. Row locks
// are taken in ascending account id order to prevent deadlocks between
// concurrent finalizations; balance writes carry an optimistic version
// check on top of the locks.
//
// On success deal.Status and deal.CompletedAt are updated in place.
func (s *LedgerService) FinalizeDealTx(ctx context.Context, tx *sql.Tx, deal *models.Deal) error {
	amount := deal.Amount
	fee := s.brokerageFee
	if amount <= 0 {
		return fmt.Errorf("%w: deal %d amount %d", ErrInvalidAmount, deal.ID, amount)
	}

	// Guard the inventory first: a committed property fails the whole
	// transfer before any balance is touched.
	var committed bool
	err := tx.QueryRowContext(ctx, `
		SELECT committed FROM properties WHERE id = $1 FOR UPDATE`,
		deal.PropertyID).Scan(&committed)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: id %d", ErrPropertyNotFound, deal.PropertyID)
	}
	if err != nil {
		return err
	}
	if committed {
		return fmt.Errorf("%w: property %d", ErrAlreadyCommitted, deal.PropertyID)
	}

	accounts, err := s.lockAccounts(ctx, tx, deal.BuyerID, deal.SellerID, s.treasuryID)
	if err != nil {
		return err
	}
	buyer := accounts[deal.BuyerID]
	seller := accounts[deal.SellerID]
	treasury := accounts[s.treasuryID]

	// Preconditions re-checked against the locked rows; the balances read
	// at request time may be stale by now.
	if buyer.Balance < amount+fee {
		return insufficientFunds("buyer", amount+fee, buyer.Balance)
	}
	if seller.Balance < fee {
		return insufficientFunds("seller", fee, seller.Balance)
	}

	buyerAfter := buyer.Balance - amount - fee
	sellerAfter := seller.Balance + amount - fee
	treasuryAfter := treasury.Balance + 2*fee

	now := time.Now()

	entries := []models.LedgerEntry{
		{DealID: deal.ID, AccountID: buyer.ID, Amount: -amount, EntryType: models.EntryDebit,
			Description: "payment for listing", Balance: buyer.Balance - amount},
		{DealID: deal.ID, AccountID: seller.ID, Amount: amount, EntryType: models.EntryCredit,
			Description: "proceeds from sale", Balance: seller.Balance + amount},
		{DealID: deal.ID, AccountID: buyer.ID, Amount: -fee, EntryType: models.EntryDebit,
			Description: "brokerage fee", Balance: buyerAfter},
		{DealID: deal.ID, AccountID: seller.ID, Amount: -fee, EntryType: models.EntryDebit,
			Description: "brokerage fee", Balance: sellerAfter},
		{DealID: deal.ID, AccountID: treasury.ID, Amount: 2 * fee, EntryType: models.EntryCredit,
			Description: "brokerage fee collected", Balance: treasuryAfter},
	}
	for _, entry := range entries {
		if err := s.createLedgerEntry(ctx, tx, &entry, now); err != nil {
			return err
		}
	}

	if err := s.updateAccountBalance(ctx, tx, buyer.ID, buyerAfter, buyer.Version); err != nil {
		return err
	}
	if err := s.updateAccountBalance(ctx, tx, seller.ID, sellerAfter, seller.Version); err != nil {
		return err
	}
	if err := s.updateAccountBalance(ctx, tx, treasury.ID, treasuryAfter, treasury.Version); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE properties SET committed = TRUE WHERE id = $1 AND committed = FALSE`,
		deal.PropertyID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: property %d", ErrAlreadyCommitted, deal.PropertyID)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE deals SET status = $1, completed_at = $2 WHERE id = $3`,
		models.DealCompleted, now, deal.ID); err != nil {
		return err
	}

	deal.Status = models.DealCompleted
	deal.CompletedAt = &now
	return nil
}

// lockAccounts takes FOR UPDATE locks on the given accounts in ascending
// id order and returns them keyed by id.
func (s *LedgerService) lockAccounts(ctx context.Context, tx *sql.Tx, ids ...int64) (map[int64]*models.Account, error) {
	ordered := append([]int64(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	accounts := make(map[int64]*models.Account, len(ordered))
	for _, id := range ordered {
		if _, ok := accounts[id]; ok {
			continue
		}
		account, err := s.lockAccount(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		accounts[id] = account
	}
	return accounts, nil
}

func (s *LedgerService) lockAccount(ctx context.Context, tx *sql.Tx, accountID int64) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRowContext(ctx, `
		SELECT id, role, balance, version, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, accountID).Scan(
		&account.ID, &account.Role, &account.Balance, &account.Version, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrAccountNotFound, accountID)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *LedgerService) createLedgerEntry(ctx context.Context, tx *sql.Tx, entry *models.LedgerEntry, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (deal_id, account_id, amount, entry_type, description, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.DealID, entry.AccountID, entry.Amount, entry.EntryType, entry.Description, entry.Balance, at)
	return err
}

func (s *LedgerService) updateAccountBalance(ctx context.Context, tx *sql.Tx, accountID, newBalance int64, version int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, time.Now(), accountID, version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: account %d", ErrConflict, accountID)
	}

	return nil
}
