package sale

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"estateos-brokerledger/pkg/middleware"
)

type createSaleRequest struct {
	BrokerID  string `json:"broker_id" binding:"required"`
	ProjectID string `json:"project_id"`
	UnitRef   string `json:"unit_ref"`
	Customer  string `json:"customer"`
	Amount    string `json:"amount" binding:"required"`
	Currency  string `json:"currency" binding:"required"`
}

func (s *Service) createSaleHandler(c *gin.Context) {
	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	sale, err := s.CreateSale(c.Request.Context(), middleware.TenantFrom(c), CreateSaleInput{
		BrokerID:  req.BrokerID,
		ProjectID: req.ProjectID,
		UnitRef:   req.UnitRef,
		Customer:  req.Customer,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, sale)
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Service) transitionStatusHandler(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	sale, err := s.TransitionStatus(c.Request.Context(), middleware.TenantFrom(c), c.Param("id"), req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sale)
}

type recordVisitRequest struct {
	BrokerID  string     `json:"broker_id" binding:"required"`
	ProjectID string     `json:"project_id"`
	SaleID    string     `json:"sale_id"`
	Notes     string     `json:"notes"`
	VisitedAt *time.Time `json:"visited_at"`
}

func (s *Service) recordVisitHandler(c *gin.Context) {
	var req recordVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	visit, err := s.RecordVisit(c.Request.Context(), middleware.TenantFrom(c), RecordVisitInput{
		BrokerID:  req.BrokerID,
		ProjectID: req.ProjectID,
		SaleID:    req.SaleID,
		Notes:     req.Notes,
		VisitedAt: req.VisitedAt,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, visit)
}

func (s *Service) listSalesHandler(c *gin.Context) {
	sales, err := s.ListSales(c.Request.Context(), middleware.TenantFrom(c), c.Query("broker_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sales})
}
