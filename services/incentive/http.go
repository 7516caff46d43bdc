package incentive

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"estateos-brokerledger/pkg/middleware"
)

type createCampaignRequest struct {
	Name       string     `json:"name" binding:"required"`
	Type       string     `json:"type" binding:"required"`
	BonusValue string     `json:"bonus_value" binding:"required"`
	Currency   string     `json:"currency" binding:"required"`
	Target     string     `json:"target"`
	ProjectID  string     `json:"project_id"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Expression string     `json:"expression"`
}

func (s *Service) createCampaignHandler(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	campaign, err := s.CreateCampaign(c.Request.Context(), middleware.TenantFrom(c), CreateCampaignInput{
		Name:       req.Name,
		Type:       CampaignType(req.Type),
		BonusValue: req.BonusValue,
		Currency:   req.Currency,
		Target:     req.Target,
		ProjectID:  req.ProjectID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Expression: req.Expression,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

func (s *Service) listCampaignsHandler(c *gin.Context) {
	campaigns, err := s.ListCampaigns(c.Request.Context(), middleware.TenantFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": campaigns})
}

type awardRequest struct {
	BrokerID string `json:"broker_id" binding:"required"`
}

func (s *Service) awardHandler(c *gin.Context) {
	var req awardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	earning, err := s.Award(c.Request.Context(), middleware.TenantFrom(c), c.Param("id"), req.BrokerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, earning)
}

func (s *Service) listEarningsHandler(c *gin.Context) {
	earnings, err := s.ListEarnings(c.Request.Context(), middleware.TenantFrom(c), c.Query("broker_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": earnings})
}
