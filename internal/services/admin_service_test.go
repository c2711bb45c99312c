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

func adminRequest(method, target, userID, role string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	if userID != "" {
		rctx.URLParams.Add("userId", userID)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, "role", role)
	return req.WithContext(ctx)
}

func TestAdminService_BlockUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAdminService(db)

	t.Run("blocks user", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET blocked = \\$1, updated_at = NOW\\(\\) WHERE id = \\$2").
			WithArgs(true, int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		service.BlockUser(w, adminRequest("PUT", "/admin/users/4/block", "4", models.RoleAdmin))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"blocked":true`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-admin refused", func(t *testing.T) {
		w := httptest.NewRecorder()
		service.BlockUser(w, adminRequest("PUT", "/admin/users/4/block", "4", models.RoleBuyer))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET blocked = \\$1, updated_at = NOW\\(\\) WHERE id = \\$2").
			WithArgs(true, int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		w := httptest.NewRecorder()
		service.BlockUser(w, adminRequest("PUT", "/admin/users/99/block", "99", models.RoleAdmin))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminService_UnblockUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAdminService(db)

	mock.ExpectExec("UPDATE users SET blocked = \\$1, updated_at = NOW\\(\\) WHERE id = \\$2").
		WithArgs(false, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	service.UnblockUser(w, adminRequest("PUT", "/admin/users/4/unblock", "4", models.RoleAdmin))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"blocked":false`)
}

func TestAdminService_ListUsers(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAdminService(db)

	mock.ExpectQuery("SELECT id, email, name, role, blocked, created_at, updated_at FROM users ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "role", "blocked", "created_at", "updated_at"}).
			AddRow(1, "buyer@example.com", "Demo Buyer", models.RoleBuyer, false, time.Now(), time.Now()).
			AddRow(2, "seller@example.com", "Demo Seller", models.RoleSeller, true, time.Now(), time.Now()))

	w := httptest.NewRecorder()
	service.ListUsers(w, adminRequest("GET", "/admin/users", "", models.RoleAdmin))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "buyer@example.com")
	assert.Contains(t, w.Body.String(), `"blocked":true`)
}
