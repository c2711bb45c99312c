package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func favouriteRequest(method, target, propertyID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	if propertyID != "" {
		rctx.URLParams.Add("propertyId", propertyID)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, "userID", "5")
	return req.WithContext(ctx)
}

func TestFavouriteService_AddFavourite(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewFavouriteService(db)

	t.Run("saves listing", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM accounts WHERE user_id = \\$1").
			WithArgs("5").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM properties WHERE id = \\$1\\)").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec("INSERT INTO favourites").
			WithArgs(int64(2), int64(7)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		w := httptest.NewRecorder()
		service.AddFavourite(w, favouriteRequest("POST", "/favourites/7", "7"))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown property", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM accounts WHERE user_id = \\$1").
			WithArgs("5").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM properties WHERE id = \\$1\\)").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		w := httptest.NewRecorder()
		service.AddFavourite(w, favouriteRequest("POST", "/favourites/99", "99"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFavouriteService_RemoveFavourite(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewFavouriteService(db)

	mock.ExpectQuery("SELECT id FROM accounts WHERE user_id = \\$1").
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec("DELETE FROM favourites WHERE account_id = \\$1 AND property_id = \\$2").
		WithArgs(int64(2), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	service.RemoveFavourite(w, favouriteRequest("DELETE", "/favourites/7", "7"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavouriteService_GetFavourites(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewFavouriteService(db)

	mock.ExpectQuery("SELECT id FROM accounts WHERE user_id = \\$1").
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery("SELECT p.id, p.title, p.description, p.price, p.location, p.image_url, p.seller_id, p.committed, p.created_at FROM favourites f JOIN properties p ON f.property_id = p.id WHERE f.account_id = \\$1 ORDER BY f.created_at DESC").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "price", "location", "image_url", "seller_id", "committed", "created_at"}).
			AddRow(7, "Beautiful House", "3BHK", 150, "Downtown", nil, 2, false, time.Now()))

	w := httptest.NewRecorder()
	service.GetFavourites(w, favouriteRequest("GET", "/favourites", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Beautiful House")
	assert.NoError(t, mock.ExpectationsWereMet())
}
