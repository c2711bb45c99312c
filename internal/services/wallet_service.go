package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/propmarket/backend/internal/models"
)

// WalletService exposes the read side of the account store: balances and
// the ledger history produced by completed deals.
type WalletService struct {
	db *sql.DB
}

func NewWalletService(db *sql.DB) *WalletService {
	return &WalletService{db: db}
}

// GetBalance returns the current balance of an account.
func (s *WalletService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: id %d", ErrAccountNotFound, accountID)
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ListTransactions returns an account's ledger entries in insertion order.
func (s *WalletService) ListTransactions(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	if _, err := s.GetBalance(ctx, accountID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, deal_id, account_id, amount, entry_type, description, balance, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var entry models.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.DealID, &entry.AccountID, &entry.Amount,
			&entry.EntryType, &entry.Description, &entry.Balance, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// accountIDForUser resolves the wallet account of the authenticated user.
// The auth middleware stores the JWT user id claim as a string.
func accountIDForUser(ctx context.Context, db *sql.DB, userID any) (int64, error) {
	uid, ok := userID.(string)
	if !ok || uid == "" {
		return 0, ErrAccountNotFound
	}

	var accountID int64
	err := db.QueryRowContext(ctx, `
		SELECT id FROM accounts WHERE user_id = $1`, uid).Scan(&accountID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: user %s", ErrAccountNotFound, uid)
	}
	if err != nil {
		return 0, err
	}
	return accountID, nil
}

// GetWalletBalance retrieves an account balance
// @Summary Get wallet balance
// @Tags wallet
// @Produce json
// @Param accountId path int true "Account ID"
// @Success 200 {object} object{accountId=int,balance=int64}
// @Failure 404 {object} ErrorResponse
// @Router /wallet/{accountId}/balance [get]
func (s *WalletService) GetWalletBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	balance, err := s.GetBalance(r.Context(), accountID)
	if err != nil {
		log.Printf("[WALLET] Balance lookup failed for account %d: %v", accountID, err)
		sendCoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"accountId": accountID,
		"balance":   balance,
	})
}

// GetTransactionHistory retrieves ledger entries for an account
// @Summary List wallet transactions
// @Tags wallet
// @Produce json
// @Param accountId path int true "Account ID"
// @Success 200 {array} models.LedgerEntry
// @Failure 404 {object} ErrorResponse
// @Router /wallet/{accountId}/transactions [get]
func (s *WalletService) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	entries, err := s.ListTransactions(r.Context(), accountID)
	if err != nil {
		log.Printf("[WALLET] Transaction history failed for account %d: %v", accountID, err)
		sendCoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
