package commission

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"estateos-brokerledger/pkg/middleware"
)

var Module = fx.Module("commission.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(engine *gin.Engine, s *Service) {
	v1 := engine.Group("/v1", middleware.Tenant())
	v1.POST("/commission-models", s.createModelHandler)
	v1.GET("/commission-models", s.listModelsHandler)
	v1.GET("/commission-records", s.listRecordsHandler)
}
