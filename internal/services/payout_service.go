package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/propmarket/backend/internal/config"
	"github.com/propmarket/backend/internal/models"
)

// PayoutService exports completed deals as ISO 20022 pacs.008 credit
// transfers paying out seller proceeds (sale amount net of the brokerage
// fee). Completed deals are queued in Redis by the deal service and
// drained here.
type PayoutService struct {
	db    *sql.DB
	redis *redis.Client
	cfg   *config.DealConfig
}

func NewPayoutService(db *sql.DB, redisClient *redis.Client, cfg *config.DealConfig) *PayoutService {
	return &PayoutService{db: db, redis: redisClient, cfg: cfg}
}

// CreatePacs008 builds a pacs.008 FIToFICustomerCreditTransfer for a
// completed deal's seller payout.
func (s *PayoutService) CreatePacs008(deal *models.Deal) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if deal.Status != models.DealCompleted {
		return nil, ErrInvalidState
	}

	msgId := uuid.New().String()
	creDtTm := time.Now()
	settlementDate := time.Now()

	// Minor units to currency units for the wire format.
	proceeds := float64(deal.Amount-s.cfg.BrokerageFee) / 100

	dealRef := fmt.Sprintf("DEAL-%d", deal.ID)

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(s.cfg.Currency),
				Value: proceeds,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG", // Clearing
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(dealRef)}[0],
					EndToEndId: common.Max35Text(dealRef),
					TxId:       &[]common.Max35Text{common.Max35Text(msgId)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(s.cfg.Currency),
					Value: proceeds,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(s.cfg.PayoutBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(fmt.Sprintf("BUYER-%d", deal.BuyerID))}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(s.cfg.PayoutBIC),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(fmt.Sprintf("SELLER-%d", deal.SellerID))}[0],
				},
			},
		},
	}

	return doc, nil
}

// CreatePacs002 creates a pacs.002 payment status report for a payout.
func (s *PayoutService) CreatePacs002(deal *models.Deal, status string) (*pacs_v08.FIToFIPaymentStatusReportV08, error) {
	msgId := uuid.New().String()
	creDtTm := time.Now()
	dealRef := fmt.Sprintf("DEAL-%d", deal.ID)

	doc := &pacs_v08.FIToFIPaymentStatusReportV08{
		GrpHdr: pacs_v08.GroupHeader53{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
		},
		TxInfAndSts: []pacs_v08.PaymentTransaction80{
			{
				OrgnlInstrId:    &[]common.Max35Text{common.Max35Text(dealRef)}[0],
				OrgnlEndToEndId: &[]common.Max35Text{common.Max35Text(dealRef)}[0],
				TxSts:           &[]pacs_v08.ExternalPaymentTransactionStatus1Code{pacs_v08.ExternalPaymentTransactionStatus1Code(status)}[0], // ACCP, RJCT, ACSC
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts an ISO 20022 document to an XML string.
func (s *PayoutService) ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

func (s *PayoutService) SendToSettlement(doc interface{}) error {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}

	// TODO: wire the clearing house endpoint once the payout partner is live
	log.Printf("[PAYOUT] Sending to settlement: %s", string(xmlData))
	return nil
}

// ProcessQueue drains the payout queue, exporting each queued deal.
// Returns the number of payouts processed.
func (s *PayoutService) ProcessQueue(ctx context.Context) (int, error) {
	if s.redis == nil {
		return 0, nil
	}

	processed := 0
	for {
		data, err := s.redis.LPop(ctx, s.cfg.PayoutQueue).Result()
		if err == redis.Nil {
			return processed, nil
		}
		if err != nil {
			return processed, err
		}

		var deal models.Deal
		if err := json.Unmarshal([]byte(data), &deal); err != nil {
			log.Printf("[PAYOUT] Skipping malformed queue entry: %v", err)
			continue
		}

		doc, err := s.CreatePacs008(&deal)
		if err != nil {
			log.Printf("[PAYOUT] Skipping deal %d: %v", deal.ID, err)
			continue
		}

		if err := s.SendToSettlement(doc); err != nil {
			return processed, err
		}
		processed++
	}
}

// ExportDeal exports a completed deal as pacs.008 XML
// @Summary Export deal payout
// @Description Export a completed deal as an ISO 20022 pacs.008 seller payout message
// @Tags payouts
// @Produce json
// @Param dealId path int true "Deal ID"
// @Success 200 {object} object{status=string,messageType=string,xml=string}
// @Failure 404 {string} string "Deal not found"
// @Failure 409 {string} string "Deal not completed"
// @Security BearerAuth
// @Router /payouts/{dealId}/pacs008 [get]
func (s *PayoutService) ExportDeal(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	dealID, err := strconv.ParseInt(chi.URLParam(r, "dealId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid deal ID", http.StatusBadRequest, nil)
		return
	}

	var deal models.Deal
	err = s.db.QueryRowContext(r.Context(), `
		SELECT id, property_id, buyer_id, seller_id, amount, status, created_at, completed_at
		FROM deals WHERE id = $1`, dealID).Scan(
		&deal.ID, &deal.PropertyID, &deal.BuyerID, &deal.SellerID,
		&deal.Amount, &deal.Status, &deal.CreatedAt, &deal.CompletedAt)
	if err == sql.ErrNoRows {
		sendCoreError(w, ErrDealNotFound)
		return
	}
	if err != nil {
		log.Printf("[PAYOUT] Failed to load deal %d: %v", dealID, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	doc, err := s.CreatePacs008(&deal)
	if err != nil {
		sendCoreError(w, err)
		return
	}

	xmlData, err := s.ConvertToXML(doc)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "exported",
		"messageType": "pacs.008.001.08",
		"xml":         xmlData,
	})
}

// ProcessPayouts drains the payout queue
// @Summary Process queued payouts
// @Description Export every queued completed deal to the settlement system
// @Tags payouts
// @Produce json
// @Success 200 {object} object{status=string,processed=int}
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /payouts/process [post]
func (s *PayoutService) ProcessPayouts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	processed, err := s.ProcessQueue(r.Context())
	if err != nil {
		log.Printf("[PAYOUT] Queue processing failed after %d payouts: %v", processed, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "processed",
		"processed": processed,
	})
}
