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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/propmarket/backend/internal/audit"
	"github.com/propmarket/backend/internal/config"
	"github.com/propmarket/backend/internal/models"
)

// DealService drives the purchase-intent lifecycle: a buyer's request
// creates a PENDING deal, a seller's accept pushes it through the ledger
// transfer engine to COMPLETED, a reject closes it. Accept is idempotent
// per deal id so clients may retry safely.
type DealService struct {
	db        *sql.DB
	redis     *redis.Client
	ledger    *LedgerService
	audit     *audit.AuditLogger
	validator *ValidationHelper
	cfg       *config.DealConfig
}

func NewDealService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService, cfg *config.DealConfig) *DealService {
	return &DealService{
		db:        db,
		redis:     redisClient,
		ledger:    ledger,
		audit:     audit.NewAuditLogger(),
		validator: NewValidationHelper(),
		cfg:       cfg,
	}
}

// RequestDeal creates a PENDING deal for a buyer on a property. The
// balance check here is advisory; the authoritative check happens again
// under locks during finalization.
func (s *DealService) RequestDeal(ctx context.Context, propertyID, buyerID int64) (*models.Deal, error) {
	var property models.Property
	err := s.db.QueryRowContext(ctx, `
		SELECT id, price, seller_id, committed FROM properties WHERE id = $1`,
		propertyID).Scan(&property.ID, &property.Price, &property.SellerID, &property.Committed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrPropertyNotFound, propertyID)
	}
	if err != nil {
		return nil, err
	}
	if property.Committed {
		return nil, fmt.Errorf("%w: property %d", ErrAlreadyCommitted, propertyID)
	}

	var balance int64
	var blocked bool
	err = s.db.QueryRowContext(ctx, `
		SELECT a.balance, u.blocked
		FROM accounts a
		JOIN users u ON a.user_id = u.id
		WHERE a.id = $1`, buyerID).Scan(&balance, &blocked)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrAccountNotFound, buyerID)
	}
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("%w: buyer account %d", ErrUserBlocked, buyerID)
	}
	if balance < property.Price {
		return nil, insufficientFunds("buyer", property.Price, balance)
	}

	deal := &models.Deal{
		PropertyID: property.ID,
		BuyerID:    buyerID,
		SellerID:   property.SellerID,
		Amount:     property.Price,
		Status:     models.DealPending,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO deals (property_id, buyer_id, seller_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at`,
		deal.PropertyID, deal.BuyerID, deal.SellerID, deal.Amount, deal.Status).
		Scan(&deal.ID, &deal.CreatedAt)
	if err != nil {
		return nil, err
	}

	log.Printf("[DEAL] Deal %d requested: property %d, buyer %d, amount %d",
		deal.ID, deal.PropertyID, deal.BuyerID, deal.Amount)
	return deal, nil
}

// AcceptDeal finalizes a PENDING deal: the status transition, the four-leg
// transfer, the property commit and the ledger append are one database
// transaction. A precondition failure parks the deal in terminal FAILED;
// an infrastructure failure rolls everything back and leaves it PENDING
// for retry. Accepting an already COMPLETED deal returns the prior result
// without touching any state.
func (s *DealService) AcceptDeal(ctx context.Context, dealID int64) (*models.Deal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FinalizeExpiry)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	deal, err := s.lockDeal(ctx, tx, dealID)
	if err != nil {
		return nil, err
	}

	if deal.Status == models.DealCompleted {
		log.Printf("[DEAL] Deal %d already completed, returning prior result", dealID)
		return deal, nil
	}
	if deal.Status != models.DealPending {
		return nil, fmt.Errorf("%w: deal %d is %s", ErrInvalidState, dealID, deal.Status)
	}

	// Transient ACCEPTED marker, visible only inside this transaction.
	if _, err := tx.ExecContext(ctx, `
		UPDATE deals SET status = $1 WHERE id = $2`,
		models.DealAccepted, dealID); err != nil {
		return nil, err
	}
	deal.Status = models.DealAccepted

	if err := s.ledger.FinalizeDealTx(ctx, tx, deal); err != nil {
		tx.Rollback()
		s.audit.LogError(dealID, deal.BuyerID, err)
		if isPreconditionFailure(err) {
			s.failDeal(dealID)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(dealID, deal.BuyerID, err)
		return nil, err
	}

	s.audit.LogTransfer(deal.ID, deal.BuyerID, deal.SellerID, deal.Amount, s.cfg.BrokerageFee, models.DealCompleted)
	log.Printf("[DEAL] Deal %d completed: property %d, amount %d, fee %d",
		deal.ID, deal.PropertyID, deal.Amount, s.cfg.BrokerageFee)

	if err := s.queueForPayout(deal); err != nil {
		log.Printf("[DEAL] Failed to queue deal %d for payout: %v", deal.ID, err)
	}

	return deal, nil
}

// RejectDeal closes a PENDING deal with no balance effect.
func (s *DealService) RejectDeal(ctx context.Context, dealID int64) (*models.Deal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	deal, err := s.lockDeal(ctx, tx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealPending {
		return nil, fmt.Errorf("%w: deal %d is %s", ErrInvalidState, dealID, deal.Status)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE deals SET status = $1 WHERE id = $2`,
		models.DealRejected, dealID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	deal.Status = models.DealRejected
	log.Printf("[DEAL] Deal %d rejected", dealID)
	return deal, nil
}

func (s *DealService) lockDeal(ctx context.Context, tx *sql.Tx, dealID int64) (*models.Deal, error) {
	var deal models.Deal
	err := tx.QueryRowContext(ctx, `
		SELECT id, property_id, buyer_id, seller_id, amount, status, created_at, completed_at
		FROM deals
		WHERE id = $1
		FOR UPDATE`, dealID).Scan(
		&deal.ID, &deal.PropertyID, &deal.BuyerID, &deal.SellerID,
		&deal.Amount, &deal.Status, &deal.CreatedAt, &deal.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrDealNotFound, dealID)
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// failDeal parks a deal in terminal FAILED after a precondition failure.
// Runs outside the rolled-back finalization transaction; the guard on
// status keeps a concurrent retry that already succeeded intact.
func (s *DealService) failDeal(dealID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		UPDATE deals SET status = $1 WHERE id = $2 AND status = $3`,
		models.DealFailed, dealID, models.DealPending); err != nil {
		log.Printf("[DEAL] Failed to mark deal %d as failed: %v", dealID, err)
	}
}

func (s *DealService) queueForPayout(deal *models.Deal) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(deal)
	if err != nil {
		return err
	}
	return s.redis.RPush(context.Background(), s.cfg.PayoutQueue, data).Err()
}

func (s *DealService) fetchDeals(ctx context.Context, where string, args ...any) ([]models.Deal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property_id, buyer_id, seller_id, amount, status, created_at, completed_at
		FROM deals `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		var deal models.Deal
		if err := rows.Scan(&deal.ID, &deal.PropertyID, &deal.BuyerID, &deal.SellerID,
			&deal.Amount, &deal.Status, &deal.CreatedAt, &deal.CompletedAt); err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

// HTTP handlers

// CreateDealRequest handles a buyer's purchase request
// @Summary Request a deal
// @Description Create a purchase request for a property
// @Tags deals
// @Accept json
// @Produce json
// @Param request body object{propertyId=int} true "Deal request"
// @Success 201 {object} models.Deal
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /deals [post]
func (s *DealService) CreateDealRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID int64 `json:"propertyId" validate:"required,gt=0"`
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

	buyerID, err := accountIDForUser(r.Context(), s.db, r.Context().Value("userID"))
	if err != nil {
		sendCoreError(w, err)
		return
	}

	deal, err := s.RequestDeal(r.Context(), req.PropertyID, buyerID)
	if err != nil {
		log.Printf("[DEAL] Request failed for property %d, buyer %d: %v", req.PropertyID, buyerID, err)
		sendCoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(deal)
}

// AcceptDealRequest handles a seller's accept
// @Summary Accept a deal
// @Description Finalize a pending deal, transferring funds and committing the property
// @Tags deals
// @Produce json
// @Param dealId path int true "Deal ID"
// @Success 200 {object} models.Deal
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /deals/{dealId}/accept [post]
func (s *DealService) AcceptDealRequest(w http.ResponseWriter, r *http.Request) {
	dealID, err := strconv.ParseInt(chi.URLParam(r, "dealId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid deal id", http.StatusBadRequest, nil)
		return
	}

	deal, err := s.AcceptDeal(r.Context(), dealID)
	if err != nil {
		log.Printf("[DEAL] Accept failed for deal %d: %v", dealID, err)
		sendCoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deal)
}

// RejectDealRequest handles a seller's reject
// @Summary Reject a deal
// @Description Close a pending deal with no balance effect
// @Tags deals
// @Produce json
// @Param dealId path int true "Deal ID"
// @Success 200 {object} models.Deal
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /deals/{dealId}/reject [post]
func (s *DealService) RejectDealRequest(w http.ResponseWriter, r *http.Request) {
	dealID, err := strconv.ParseInt(chi.URLParam(r, "dealId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid deal id", http.StatusBadRequest, nil)
		return
	}

	deal, err := s.RejectDeal(r.Context(), dealID)
	if err != nil {
		log.Printf("[DEAL] Reject failed for deal %d: %v", dealID, err)
		sendCoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deal)
}

// GetSellerPendingDeals lists pending deals awaiting the seller's decision
// @Summary List pending deals for seller
// @Tags deals
// @Produce json
// @Success 200 {array} models.Deal
// @Router /deals/pending [get]
func (s *DealService) GetSellerPendingDeals(w http.ResponseWriter, r *http.Request) {
	sellerID, err := accountIDForUser(r.Context(), s.db, r.Context().Value("userID"))
	if err != nil {
		sendCoreError(w, err)
		return
	}

	deals, err := s.fetchDeals(r.Context(), "WHERE seller_id = $1 AND status = $2", sellerID, models.DealPending)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch deals", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deals)
}

// GetBuyerDeals lists all deals requested by the buyer
// @Summary List buyer deals
// @Tags deals
// @Produce json
// @Success 200 {array} models.Deal
// @Router /deals/mine [get]
func (s *DealService) GetBuyerDeals(w http.ResponseWriter, r *http.Request) {
	buyerID, err := accountIDForUser(r.Context(), s.db, r.Context().Value("userID"))
	if err != nil {
		sendCoreError(w, err)
		return
	}

	deals, err := s.fetchDeals(r.Context(), "WHERE buyer_id = $1", buyerID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch deals", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deals)
}

// GetCompletedDeals lists all completed deals
// @Summary List completed deals
// @Tags deals
// @Produce json
// @Success 200 {array} models.Deal
// @Router /deals/completed [get]
func (s *DealService) GetCompletedDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := s.fetchDeals(r.Context(), "WHERE status = $1", models.DealCompleted)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch deals", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deals)
}
