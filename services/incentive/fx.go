package incentive

import (
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"

	"estateos-brokerledger/pkg/middleware"
	"estateos-brokerledger/pkg/taskname"
)

var Module = fx.Module("incentive.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
	fx.Invoke(registerTaskHandlers),
)

func registerRoutes(engine *gin.Engine, s *Service) {
	v1 := engine.Group("/v1", middleware.Tenant())
	v1.POST("/incentive-campaigns", s.createCampaignHandler)
	v1.GET("/incentive-campaigns", s.listCampaignsHandler)
	v1.POST("/incentive-campaigns/:id/award", s.awardHandler)
	v1.GET("/incentive-earnings", s.listEarningsHandler)
}

func registerTaskHandlers(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(taskname.IncentiveEvaluate, s.HandleEvaluateTask)
}
