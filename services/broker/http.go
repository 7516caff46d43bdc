package broker

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estateos-brokerledger/pkg/db/pagination"
	"estateos-brokerledger/pkg/middleware"
)

type createBrokerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

func (s *Service) listBrokers(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := s.List(c.Request.Context(), middleware.TenantFrom(c), page)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Service) getBroker(c *gin.Context) {
	b, err := s.Get(c.Request.Context(), middleware.TenantFrom(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, b)
}

func (s *Service) createBroker(c *gin.Context) {
	var req createBrokerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	b, err := s.Create(c.Request.Context(), middleware.TenantFrom(c), req.Name, req.Email, req.Phone)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, b)
}
