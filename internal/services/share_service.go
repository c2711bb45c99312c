package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

// ShareService issues short-lived QR share links for property listings.
// The token lives in Redis for 24 hours; resolving a token returns the
// listing without authentication.
type ShareService struct {
	db    *sql.DB
	redis *redis.Client
}

const shareTokenTTL = 24 * time.Hour

func NewShareService(db *sql.DB, redisClient *redis.Client) *ShareService {
	return &ShareService{db: db, redis: redisClient}
}

func (s *ShareService) GenerateShareQR(ctx context.Context, propertyID int64) (string, string, error) {
	if s.redis == nil {
		return "", "", fmt.Errorf("sharing unavailable")
	}

	shareData := map[string]any{
		"propertyId": propertyID,
		"timestamp":  time.Now().Unix(),
		"nonce":      s.generateNonce(),
	}

	jsonData, err := json.Marshal(shareData)
	if err != nil {
		return "", "", err
	}

	token := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("share:%s", token)
	if err := s.redis.Set(ctx, key, jsonData, shareTokenTTL).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(token, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	qrImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	return token, qrImage, nil
}

// ResolveShareToken looks up a share token and returns the property id it
// points at. Unlike one-shot payment codes, share tokens stay valid until
// they expire.
func (s *ShareService) ResolveShareToken(ctx context.Context, token string) (int64, error) {
	if s.redis == nil {
		return 0, fmt.Errorf("sharing unavailable")
	}

	key := fmt.Sprintf("share:%s", token)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return 0, fmt.Errorf("invalid or expired share token")
	}
	if err != nil {
		return 0, err
	}

	var payload struct {
		PropertyID int64 `json:"propertyId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, err
	}

	return payload.PropertyID, nil
}

func (s *ShareService) generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

// ShareProperty generates a share QR for a listing
// @Summary Share a listing
// @Description Generate a QR code encoding a short-lived share token for a property listing
// @Tags properties
// @Produce json
// @Param propertyId path int true "Property ID"
// @Success 200 {object} object{token=string,qrImage=string}
// @Failure 404 {string} string "Property not found"
// @Security BearerAuth
// @Router /properties/{propertyId}/share [post]
func (s *ShareService) ShareProperty(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	propertyID, err := strconv.ParseInt(chi.URLParam(r, "propertyId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid property ID", http.StatusBadRequest, nil)
		return
	}

	var exists bool
	if err := s.db.QueryRowContext(r.Context(),
		`SELECT EXISTS(SELECT 1 FROM properties WHERE id = $1)`, propertyID).Scan(&exists); err != nil {
		log.Printf("[SHARE] Property lookup failed: %v", err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}
	if !exists {
		sendCoreError(w, ErrPropertyNotFound)
		return
	}

	token, qrImage, err := s.GenerateShareQR(r.Context(), propertyID)
	if err != nil {
		log.Printf("[SHARE] Failed to generate share QR for property %d: %v", propertyID, err)
		SendErrorResponse(w, "Failed to generate share code", http.StatusInternalServerError, nil)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"token":   token,
		"qrImage": qrImage,
	})
}

// ResolveShare resolves a share token to its listing
// @Summary Resolve a share token
// @Description Resolve a listing share token to the property it points at
// @Tags properties
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} object{propertyId=int}
// @Failure 404 {string} string "Invalid or expired share token"
// @Router /share/{token} [get]
func (s *ShareService) ResolveShare(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	token := chi.URLParam(r, "token")

	propertyID, err := s.ResolveShareToken(r.Context(), token)
	if err != nil {
		SendErrorResponse(w, "Invalid or expired share token", http.StatusNotFound, nil)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{"propertyId": propertyID})
}
