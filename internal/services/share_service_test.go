package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestShareService_GenerateShareQR(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("issues token and QR image", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewShareService(db, redisClient)

		redisMock.Regexp().ExpectSet(`share:.*`, `.*`, shareTokenTTL).SetVal("OK")

		token, qrImage, err := service.GenerateShareQR(context.Background(), 7)
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.NotEmpty(t, qrImage)

		// Token decodes back to the listing it was issued for.
		decoded, err := base64.URLEncoding.DecodeString(token)
		assert.NoError(t, err)
		var payload map[string]any
		assert.NoError(t, json.Unmarshal(decoded, &payload))
		assert.Equal(t, float64(7), payload["propertyId"])

		// PNG is base64 encoded
		_, err = base64.StdEncoding.DecodeString(qrImage)
		assert.NoError(t, err)
	})

	t.Run("fails without redis", func(t *testing.T) {
		service := NewShareService(db, nil)

		_, _, err := service.GenerateShareQR(context.Background(), 7)
		assert.Error(t, err)
	})
}

func TestShareService_ResolveShareToken(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("resolves valid token", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewShareService(db, redisClient)

		payload := []byte(`{"propertyId":7,"timestamp":1756684800,"nonce":"abc"}`)
		token := base64.URLEncoding.EncodeToString(payload)

		redisMock.ExpectGet(fmt.Sprintf("share:%s", token)).SetVal(string(payload))

		propertyID, err := service.ResolveShareToken(context.Background(), token)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), propertyID)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("expired token", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewShareService(db, redisClient)

		redisMock.ExpectGet("share:expired").RedisNil()

		_, err := service.ResolveShareToken(context.Background(), "expired")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid or expired")
	})
}

func TestShareService_ShareProperty(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("unknown property", func(t *testing.T) {
		redisClient, _ := redismock.NewClientMock()
		service := NewShareService(db, redisClient)

		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM properties WHERE id = \\$1\\)").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		req := httptest.NewRequest("POST", "/properties/99/share", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("propertyId", "99")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		w := httptest.NewRecorder()

		service.ShareProperty(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("existing property", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewShareService(db, redisClient)

		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM properties WHERE id = \\$1\\)").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		redisMock.Regexp().ExpectSet(`share:.*`, `.*`, shareTokenTTL).SetVal("OK")

		req := httptest.NewRequest("POST", "/properties/7/share", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("propertyId", "7")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		w := httptest.NewRecorder()

		service.ShareProperty(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "qrImage")
	})
}
