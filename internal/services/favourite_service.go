package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/propmarket/backend/internal/models"
)

// FavouriteService manages a buyer's saved listings.
type FavouriteService struct {
	db *sql.DB
}

func NewFavouriteService(db *sql.DB) *FavouriteService {
	return &FavouriteService{db: db}
}

// AddFavourite saves a property for the authenticated buyer
// @Summary Add favourite
// @Tags favourites
// @Produce json
// @Param propertyId path int true "Property ID"
// @Success 201 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /favourites/{propertyId} [post]
func (s *FavouriteService) AddFavourite(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.ParseInt(chi.URLParam(r, "propertyId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid property id", http.StatusBadRequest, nil)
		return
	}

	accountID, err := accountIDForUser(r.Context(), s.db, r.Context().Value("userID"))
	if err != nil {
		sendCoreError(w, err)
		return
	}

	var exists bool
	err = s.db.QueryRowContext(r.Context(), `
		SELECT EXISTS(SELECT 1 FROM properties WHERE id = $1)`, propertyID).Scan(&exists)
	if err != nil {
		SendErrorResponse(w, "Failed to add favourite", http.StatusInternalServerError, nil)
		return
	}
	if !exists {
		sendCoreError(w, fmt.Errorf("%w: id %d", ErrPropertyNotFound, propertyID))
		return
	}

	// Unique on (account_id, property_id); re-adding is a no-op.
	_, err = s.db.ExecContext(r.Context(), `
		INSERT INTO favourites (account_id, property_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account_id, property_id) DO NOTHING`, accountID, propertyID)
	if err != nil {
		log.Printf("[FAVOURITE] Failed to add favourite %d for account %d: %v", propertyID, accountID, err)
		SendErrorResponse(w, "Failed to add favourite", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "Favourite added"})
}

// RemoveFavourite removes a saved property
// @Summary Remove favourite
// @Tags favourites
// @Produce json
// @Param propertyId path int true "Property ID"
// @Success 200 {object} map[string]string
// @Router /favourites/{propertyId} [delete]
func (s *FavouriteService) RemoveFavourite(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.ParseInt(chi.URLParam(r, "propertyId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid property id", http.StatusBadRequest, nil)
		return
	}

	accountID, err := accountIDForUser(r.Context(), s.db, r.Context().Value("userID"))
	if err != nil {
		sendCoreError(w, err)
		return
	}

	_, err = s.db.ExecContext(r.Context(), `
		DELETE FROM favourites WHERE account_id = $1 AND property_id = $2`, accountID, propertyID)
	if err != nil {
		log.Printf("[FAVOURITE] Failed to remove favourite %d for account %d: %v", propertyID, accountID, err)
		SendErrorResponse(w, "Failed to remove favourite", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Favourite removed"})
}

// GetFavourites lists the buyer's saved properties
// @Summary List favourites
// @Tags favourites
// @Produce json
// @Success 200 {array} models.Property
// @Router /favourites [get]
func (s *FavouriteService) GetFavourites(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDForUser(r.Context(), s.db, r.Context().Value("userID"))
	if err != nil {
		sendCoreError(w, err)
		return
	}

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT p.id, p.title, p.description, p.price, p.location, p.image_url, p.seller_id, p.committed, p.created_at
		FROM favourites f
		JOIN properties p ON f.property_id = p.id
		WHERE f.account_id = $1
		ORDER BY f.created_at DESC`, accountID)
	if err != nil {
		log.Printf("[FAVOURITE] Failed to list favourites for account %d: %v", accountID, err)
		SendErrorResponse(w, "Failed to fetch favourites", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	properties := []models.Property{}
	for rows.Next() {
		var p models.Property
		var imageURL sql.NullString
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Location,
			&imageURL, &p.SellerID, &p.Committed, &p.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch favourites", http.StatusInternalServerError, nil)
			return
		}
		p.ImageURL = imageURL.String
		properties = append(properties, p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(properties)
}
