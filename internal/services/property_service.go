package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/propmarket/backend/internal/models"
)

// PropertyService manages listings and exposes the inventory read path;
// the committed flag itself is only ever flipped by the ledger service.
type PropertyService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewPropertyService(db *sql.DB) *PropertyService {
	return &PropertyService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// IsCommitted reports whether a property is already committed to a sale.
func (s *PropertyService) IsCommitted(ctx context.Context, propertyID int64) (bool, error) {
	var committed bool
	err := s.db.QueryRowContext(ctx, `
		SELECT committed FROM properties WHERE id = $1`, propertyID).Scan(&committed)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("%w: id %d", ErrPropertyNotFound, propertyID)
	}
	if err != nil {
		return false, err
	}
	return committed, nil
}

func (s *PropertyService) fetchProperty(ctx context.Context, propertyID int64) (*models.Property, error) {
	var p models.Property
	var imageURL sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, price, location, image_url, seller_id, committed, created_at
		FROM properties WHERE id = $1`, propertyID).Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.Location, &imageURL,
		&p.SellerID, &p.Committed, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrPropertyNotFound, propertyID)
	}
	if err != nil {
		return nil, err
	}
	p.ImageURL = imageURL.String
	return &p, nil
}

func (s *PropertyService) fetchProperties(ctx context.Context, location string, minPrice, maxPrice int64, committed *bool) ([]models.Property, error) {
	var conditions []string
	var args []any
	argIndex := 1

	if location != "" {
		conditions = append(conditions, fmt.Sprintf("location ILIKE $%d", argIndex))
		args = append(args, "%"+location+"%")
		argIndex++
	}
	if minPrice > 0 {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, minPrice)
		argIndex++
	}
	if maxPrice > 0 {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, maxPrice)
		argIndex++
	}
	if committed != nil {
		conditions = append(conditions, fmt.Sprintf("committed = $%d", argIndex))
		args = append(args, *committed)
		argIndex++
	}

	query := `
		SELECT id, title, description, price, location, image_url, seller_id, committed, created_at
		FROM properties`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	properties := []models.Property{}
	for rows.Next() {
		var p models.Property
		var imageURL sql.NullString
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Location,
			&imageURL, &p.SellerID, &p.Committed, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.ImageURL = imageURL.String
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// AddProperty creates a listing for the authenticated seller
// @Summary Add a property
// @Tags properties
// @Accept json
// @Produce json
// @Param property body object{title=string,description=string,price=int,location=string,imageUrl=string} true "Property"
// @Success 201 {object} models.Property
// @Failure 400 {object} ErrorResponse
// @Router /properties [post]
func (s *PropertyService) AddProperty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title" validate:"required,min=3,max=200"`
		Description string `json:"description" validate:"max=2000"`
		Price       int64  `json:"price" validate:"required,gt=0"`
		Location    string `json:"location" validate:"required,max=200"`
		ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	sellerID, err := accountIDForUser(r.Context(), s.db, r.Context().Value("userID"))
	if err != nil {
		sendCoreError(w, err)
		return
	}

	property := models.Property{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		SellerID:    sellerID,
	}
	err = s.db.QueryRowContext(r.Context(), `
		INSERT INTO properties (title, description, price, location, image_url, seller_id, committed, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, FALSE, NOW())
		RETURNING id, created_at`,
		property.Title, property.Description, property.Price, property.Location,
		property.ImageURL, property.SellerID).Scan(&property.ID, &property.CreatedAt)
	if err != nil {
		log.Printf("[PROPERTY] Failed to create property for seller %d: %v", sellerID, err)
		SendErrorResponse(w, "Failed to create property", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[PROPERTY] Property %d created by seller %d", property.ID, sellerID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(property)
}

// ListProperties lists properties with optional filters
// @Summary List properties
// @Description Filter by location, price range and committed status
// @Tags properties
// @Produce json
// @Param location query string false "Location substring"
// @Param minPrice query int false "Minimum price (minor units)"
// @Param maxPrice query int false "Maximum price (minor units)"
// @Param committed query bool false "Committed (sold) filter"
// @Success 200 {object} object{properties=[]models.Property,count=int}
// @Router /properties [get]
func (s *PropertyService) ListProperties(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	minPrice, _ := strconv.ParseInt(r.URL.Query().Get("minPrice"), 10, 64)
	maxPrice, _ := strconv.ParseInt(r.URL.Query().Get("maxPrice"), 10, 64)

	var committed *bool
	if raw := r.URL.Query().Get("committed"); raw != "" {
		if val, err := strconv.ParseBool(raw); err == nil {
			committed = &val
		}
	}

	properties, err := s.fetchProperties(r.Context(), location, minPrice, maxPrice, committed)
	if err != nil {
		log.Printf("[PROPERTY] Failed to list properties: %v", err)
		SendErrorResponse(w, "Failed to fetch properties", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"properties": properties,
		"count":      len(properties),
	})
}

// GetProperty retrieves a single property
// @Summary Get property by ID
// @Tags properties
// @Produce json
// @Param propertyId path int true "Property ID"
// @Success 200 {object} models.Property
// @Failure 404 {object} ErrorResponse
// @Router /properties/{propertyId} [get]
func (s *PropertyService) GetProperty(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.ParseInt(chi.URLParam(r, "propertyId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid property id", http.StatusBadRequest, nil)
		return
	}

	property, err := s.fetchProperty(r.Context(), propertyID)
	if err != nil {
		sendCoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(property)
}

// DeleteProperty removes an uncommitted listing
// @Summary Delete property
// @Tags properties
// @Produce json
// @Param propertyId path int true "Property ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /properties/{propertyId} [delete]
func (s *PropertyService) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.ParseInt(chi.URLParam(r, "propertyId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid property id", http.StatusBadRequest, nil)
		return
	}

	// Committed properties are retained for audit alongside their deals.
	result, err := s.db.ExecContext(r.Context(), `
		DELETE FROM properties WHERE id = $1 AND committed = FALSE`, propertyID)
	if err != nil {
		log.Printf("[PROPERTY] Failed to delete property %d: %v", propertyID, err)
		SendErrorResponse(w, "Failed to delete property", http.StatusInternalServerError, nil)
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		if committed, cErr := s.IsCommitted(r.Context(), propertyID); cErr == nil && committed {
			sendCoreError(w, fmt.Errorf("%w: property %d", ErrAlreadyCommitted, propertyID))
			return
		}
		sendCoreError(w, fmt.Errorf("%w: id %d", ErrPropertyNotFound, propertyID))
		return
	}

	log.Printf("[PROPERTY] Property %d deleted", propertyID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Property deleted successfully"})
}
