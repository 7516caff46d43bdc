package sale

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"estateos-brokerledger/pkg/middleware"
	"estateos-brokerledger/services/commission"
	"estateos-brokerledger/services/incentive"
)

var Module = fx.Module("sale.service",
	fx.Provide(
		NewService,
		func(c *commission.Service) AccrualHook { return c },
		func(s *Service) incentive.MetricSource { return s },
	),
	fx.Invoke(registerRoutes),
)

func registerRoutes(engine *gin.Engine, s *Service) {
	v1 := engine.Group("/v1", middleware.Tenant())
	v1.POST("/sales", s.createSaleHandler)
	v1.GET("/sales", s.listSalesHandler)
	v1.POST("/sales/:id/status", s.transitionStatusHandler)
	v1.POST("/visits", s.recordVisitHandler)
}
