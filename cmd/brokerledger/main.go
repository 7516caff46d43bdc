package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"estateos-brokerledger/pkg/config"
	"estateos-brokerledger/pkg/db"
	"estateos-brokerledger/pkg/health"
	"estateos-brokerledger/pkg/logger"
	"estateos-brokerledger/pkg/redis"
	"estateos-brokerledger/pkg/sequence"
	"estateos-brokerledger/pkg/server"
	"estateos-brokerledger/pkg/task"
	"estateos-brokerledger/services/broker"
	"estateos-brokerledger/services/commission"
	"estateos-brokerledger/services/incentive"
	"estateos-brokerledger/services/payment"
	"estateos-brokerledger/services/sale"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		sequence.Module,
		health.Module,
		fx.Provide(
			provideTracerProvider,
			provideSnowflakeNode,
		),
		broker.Module,
		commission.Module,
		incentive.Module,
		sale.Module,
		payment.Module,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideTracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
