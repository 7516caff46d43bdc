package broker

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"estateos-brokerledger/pkg/middleware"
)

var Module = fx.Module("broker.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(engine *gin.Engine, s *Service) {
	v1 := engine.Group("/v1", middleware.Tenant())
	v1.GET("/brokers", s.listBrokers)
	v1.GET("/brokers/:id", s.getBroker)
	v1.POST("/brokers", s.createBroker)
}
