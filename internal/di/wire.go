//go:build wireinject
// +build wireinject

package di

import (
	"RegimeModel/pkg/config"
	"RegimeModel/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Logging and metrics
		ProvideLogger,
		ProvideMetrics,
		ProvideMetricsRepository,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,

		// Repositories
		ProvideSeriesSource,
		ProvideSeriesCache,
		ProvideReportPublisher,

		// Services
		ProvideRegimeEngine,
		ProvideSignalGenerator,
		ProvideBacktestEvaluator,

		// Use cases
		ProvideSeriesLoader,
		ProvidePipeline,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil, nil
}
