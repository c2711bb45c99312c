package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/propmarket/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestWalletService_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db)

	t.Run("existing account", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(1250))

		balance, err := service.GetBalance(context.Background(), 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(1250), balance)
	})

	t.Run("unknown account", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE id = \\$1").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		_, err := service.GetBalance(context.Background(), 99)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestWalletService_ListTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db)

	t.Run("entries in insertion order", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(1250))

		mock.ExpectQuery("SELECT id, deal_id, account_id, amount, entry_type, description, balance, created_at FROM ledger_entries WHERE account_id = \\$1 ORDER BY id").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "deal_id", "account_id", "amount", "entry_type", "description", "balance", "created_at"}).
				AddRow(1, 10, 1, -150, models.EntryDebit, "payment for listing", 1350, time.Now()).
				AddRow(3, 10, 1, -100, models.EntryDebit, "brokerage fee", 1250, time.Now()))

		entries, err := service.ListTransactions(context.Background(), 1)
		assert.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.Equal(t, "payment for listing", entries[0].Description)
		assert.Equal(t, int64(-150), entries[0].Amount)
		assert.Equal(t, int64(1250), entries[1].Balance)
	})

	t.Run("unknown account fails before querying entries", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE id = \\$1").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		_, err := service.ListTransactions(context.Background(), 99)
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletService_GetWalletBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db)

	t.Run("returns balance", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(1250))

		req := httptest.NewRequest("GET", "/wallet/1/balance", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("accountId", "1")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		w := httptest.NewRecorder()

		service.GetWalletBalance(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "1250")
	})

	t.Run("invalid account id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/wallet/abc/balance", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("accountId", "abc")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		w := httptest.NewRecorder()

		service.GetWalletBalance(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAccountIDForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("resolves account", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM accounts WHERE user_id = \\$1").
			WithArgs("5").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

		accountID, err := accountIDForUser(context.Background(), db, "5")
		assert.NoError(t, err)
		assert.Equal(t, int64(2), accountID)
	})

	t.Run("missing claim", func(t *testing.T) {
		_, err := accountIDForUser(context.Background(), db, nil)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}
