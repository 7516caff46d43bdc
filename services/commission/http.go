package commission

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estateos-brokerledger/pkg/middleware"
)

type tierRequest struct {
	Threshold string `json:"threshold" binding:"required"`
	Rate      string `json:"rate" binding:"required"`
}

type createModelRequest struct {
	Name         string        `json:"name" binding:"required"`
	Type         string        `json:"type"`
	Basis        string        `json:"basis"`
	Value        string        `json:"value"`
	Currency     string        `json:"currency"`
	ProjectID    string        `json:"project_id"`
	PayableStage string        `json:"payable_stage" binding:"required"`
	Metric       string        `json:"metric"`
	Tiers        []tierRequest `json:"tiers"`
}

func (s *Service) createModelHandler(c *gin.Context) {
	var req createModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	in := CreateModelInput{
		Name:         req.Name,
		Type:         ModelType(req.Type),
		Basis:        Basis(req.Basis),
		Value:        req.Value,
		Currency:     req.Currency,
		ProjectID:    req.ProjectID,
		PayableStage: req.PayableStage,
		Metric:       TierMetric(req.Metric),
	}
	for _, t := range req.Tiers {
		in.Tiers = append(in.Tiers, TierInput{Threshold: t.Threshold, Rate: t.Rate})
	}

	model, err := s.CreateModel(c.Request.Context(), middleware.TenantFrom(c), in)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, model)
}

func (s *Service) listModelsHandler(c *gin.Context) {
	models, err := s.ListModels(c.Request.Context(), middleware.TenantFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": models})
}

func (s *Service) listRecordsHandler(c *gin.Context) {
	records, err := s.ListRecords(c.Request.Context(), middleware.TenantFrom(c), c.Query("broker_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}
