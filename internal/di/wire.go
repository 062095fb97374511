//go:build wireinject
// +build wireinject

package di

import (
	"Momentum/pkg/config"
	"Momentum/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideLogAggregator,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideScoutStore,
		ProvideSignalStore,
		ProvideCandleArchive,
		ProvideEventPublisher,

		// Market data
		ProvideMarketFeed,
		ProvideMarketRouter,

		// Detection pipeline
		ProvideDetector,
		ProvideHub,
		ProvideSignalWriter,
		ProvideMonitor,
		ProvideDetectUseCase,

		// HTTP surface and application server
		ProvideAPIRouter,
		ProvideApp,
	)
	return &server.App{}, nil
}
