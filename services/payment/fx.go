package payment

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"estateos-brokerledger/pkg/middleware"
)

var Module = fx.Module("payment.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(engine *gin.Engine, s *Service) {
	v1 := engine.Group("/v1", middleware.Tenant())
	v1.POST("/payments", s.recordPaymentHandler)
	v1.GET("/payments", s.listPaymentsHandler)
	v1.POST("/imports", s.importHandler)
	v1.GET("/balances", s.tenantSummaryHandler)
	v1.GET("/brokers/:id/balance", s.brokerBalanceHandler)
	v1.GET("/brokers/:id/statement", s.brokerStatementHandler)
}
