package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estateos-brokerledger/pkg/errutil"
	"estateos-brokerledger/pkg/middleware"
)

type recordPaymentRequest struct {
	BrokerID       string   `json:"broker_id" binding:"required"`
	Amount         string   `json:"amount" binding:"required"`
	Currency       string   `json:"currency" binding:"required"`
	Method         string   `json:"method"`
	Reference      string   `json:"reference"`
	Notes          string   `json:"notes"`
	IdempotencyKey string   `json:"idempotency_key"`
	ItemIDs        []string `json:"item_ids"`
}

func (s *Service) recordPaymentHandler(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	p, allocation, err := s.RecordPayment(c.Request.Context(), middleware.TenantFrom(c), RecordPaymentInput{
		BrokerID:       req.BrokerID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Method:         req.Method,
		Reference:      req.Reference,
		Notes:          req.Notes,
		IdempotencyKey: req.IdempotencyKey,
		ItemIDs:        req.ItemIDs,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	if allocation == nil {
		c.JSON(http.StatusOK, gin.H{"payment": p})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"payment": p, "allocation": allocation})
}

func (s *Service) listPaymentsHandler(c *gin.Context) {
	payments, err := s.ListPayments(c.Request.Context(), middleware.TenantFrom(c), c.Query("broker_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}

func (s *Service) brokerBalanceHandler(c *gin.Context) {
	balance, err := s.Balance(c.Request.Context(), middleware.TenantFrom(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (s *Service) brokerStatementHandler(c *gin.Context) {
	statement, err := s.Statement(c.Request.Context(), middleware.TenantFrom(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, statement)
}

func (s *Service) tenantSummaryHandler(c *gin.Context) {
	summary, err := s.TenantSummary(c.Request.Context(), middleware.TenantFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Service) importHandler(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		_ = c.Error(errutil.ValidationFailed("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	result, err := s.Import(c.Request.Context(), middleware.TenantFrom(c), c.PostForm("batch_ref"), file)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
