package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/propmarket/backend/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestSeedDemoData(t *testing.T) {
	setupAuthConfig()

	t.Run("disabled by config", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		cfg := testDealConfig()
		cfg.SeedDemoData = false

		assert.NoError(t, SeedDemoData(db, cfg))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips non-empty database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		cfg := testDealConfig()
		cfg.SeedDemoData = true

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

		assert.NoError(t, SeedDemoData(db, cfg))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("seeds empty database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		cfg := &config.DealConfig{SeedDemoData: true}

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		mock.ExpectBegin()

		// Treasury, admin, seller, buyer, second seller
		seeded := []struct {
			id      int64
			balance int64
		}{
			{1, 0}, {2, 0}, {3, 1500}, {4, 1500}, {5, 1000},
		}
		for _, u := range seeded {
			mock.ExpectQuery("INSERT INTO users").
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(u.id))
			mock.ExpectExec("INSERT INTO accounts").
				WithArgs(u.id, sqlmock.AnyArg(), u.balance).
				WillReturnResult(sqlmock.NewResult(u.id, 1))
		}

		mock.ExpectQuery("SELECT id FROM accounts WHERE user_id = \\$1").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		mock.ExpectExec("INSERT INTO properties").
			WithArgs("Beautiful House", sqlmock.AnyArg(), "Downtown", int64(150), int64(3)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO properties").
			WithArgs("Modern Apartment", sqlmock.AnyArg(), "City Center", int64(200), int64(3)).
			WillReturnResult(sqlmock.NewResult(2, 1))

		mock.ExpectCommit()

		assert.NoError(t, SeedDemoData(db, cfg))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
