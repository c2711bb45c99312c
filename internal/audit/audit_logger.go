package audit

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	DealID    int64     `json:"deal_id"`
	AccountID int64     `json:"account_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Status    string    `json:"status"`
	Details   any       `json:"details"`
}

type AuditLogger struct{}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

func (a *AuditLogger) LogTransfer(dealID, buyerID, sellerID, amount, fee int64, status string) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "DEAL_TRANSFER",
		DealID:    dealID,
		Amount:    amount,
		Status:    status,
		Details: map[string]int64{
			"buyer_account":  buyerID,
			"seller_account": sellerID,
			"brokerage_fee":  fee,
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogError(dealID, accountID int64, err error) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "ERROR",
		DealID:    dealID,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *AuditLogger) LogOperation(dealID, accountID int64, operation, details string) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: operation,
		DealID:    dealID,
		AccountID: accountID,
		Status:    "SUCCESS",
		Details:   map[string]string{"details": details},
	}
	a.log(event)
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
