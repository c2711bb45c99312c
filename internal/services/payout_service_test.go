package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/propmarket/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func completedDeal() *models.Deal {
	completedAt := time.Now()
	return &models.Deal{
		ID:          10,
		PropertyID:  7,
		BuyerID:     1,
		SellerID:    2,
		Amount:      150,
		Status:      models.DealCompleted,
		CreatedAt:   time.Now(),
		CompletedAt: &completedAt,
	}
}

func TestPayoutService_CreatePacs008(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewPayoutService(db, nil, testDealConfig())

	t.Run("builds seller payout", func(t *testing.T) {
		doc, err := service.CreatePacs008(completedDeal())
		assert.NoError(t, err)
		assert.NotNil(t, doc)
		assert.NotEmpty(t, doc.GrpHdr.MsgId)
		assert.Equal(t, "1", string(doc.GrpHdr.NbOfTxs))
		assert.Equal(t, "INR", string(doc.GrpHdr.TtlIntrBkSttlmAmt.Ccy))
		// 150 minus the 100 fee, in currency units
		assert.Equal(t, 0.5, doc.GrpHdr.TtlIntrBkSttlmAmt.Value)
		assert.Len(t, doc.CdtTrfTxInf, 1)
		assert.Equal(t, "DEAL-10", string(doc.CdtTrfTxInf[0].PmtId.EndToEndId))
		assert.Equal(t, "SELLER-2", string(*doc.CdtTrfTxInf[0].Cdtr.Nm))
		assert.Equal(t, "BUYER-1", string(*doc.CdtTrfTxInf[0].Dbtr.Nm))
	})

	t.Run("refuses pending deal", func(t *testing.T) {
		deal := completedDeal()
		deal.Status = models.DealPending
		deal.CompletedAt = nil

		_, err := service.CreatePacs008(deal)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestPayoutService_CreatePacs002(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewPayoutService(db, nil, testDealConfig())

	doc, err := service.CreatePacs002(completedDeal(), "ACCP")
	assert.NoError(t, err)
	assert.NotEmpty(t, doc.GrpHdr.MsgId)
	assert.Len(t, doc.TxInfAndSts, 1)
	assert.Equal(t, "DEAL-10", string(*doc.TxInfAndSts[0].OrgnlEndToEndId))
	assert.Equal(t, "ACCP", string(*doc.TxInfAndSts[0].TxSts))
}

func TestPayoutService_ConvertToXML(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewPayoutService(db, nil, testDealConfig())

	t.Run("pacs008 to XML", func(t *testing.T) {
		doc, err := service.CreatePacs008(completedDeal())
		assert.NoError(t, err)

		xmlString, err := service.ConvertToXML(doc)
		assert.NoError(t, err)
		assert.Contains(t, xmlString, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>")
		assert.Contains(t, xmlString, "DEAL-10")
		assert.Contains(t, xmlString, "INR")
	})

	t.Run("unmarshalable document", func(t *testing.T) {
		invalidDoc := make(chan int)

		xmlString, err := service.ConvertToXML(invalidDoc)
		assert.Error(t, err)
		assert.Empty(t, xmlString)
		assert.Contains(t, err.Error(), "failed to marshal XML")
	})
}

func TestPayoutService_ProcessQueue(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("drains queued deals", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewPayoutService(db, redisClient, testDealConfig())

		data, err := json.Marshal(completedDeal())
		assert.NoError(t, err)

		redisMock.ExpectLPop("payout_queue").SetVal(string(data))
		redisMock.ExpectLPop("payout_queue").RedisNil()

		processed, err := service.ProcessQueue(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 1, processed)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("skips malformed entries", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewPayoutService(db, redisClient, testDealConfig())

		redisMock.ExpectLPop("payout_queue").SetVal("not-json")
		redisMock.ExpectLPop("payout_queue").RedisNil()

		processed, err := service.ProcessQueue(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 0, processed)
	})

	t.Run("no-op without redis", func(t *testing.T) {
		service := NewPayoutService(db, nil, testDealConfig())

		processed, err := service.ProcessQueue(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 0, processed)
	})
}
