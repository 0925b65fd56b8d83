//go:build wireinject
// +build wireinject

package di

import (
	"SignalDesk/pkg/config"
	"SignalDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideStores,
		ProvideQuoteFeed,
		ProvideChannel,
		ProvideRecommendationSource,
		ProvideGateway,

		// Use cases
		ProvideLedger,
		ProvideValidator,
		ProvideSweeper,
		ProvideScheduler,
		ProvideCoordinator,
		ProvideActions,
		ProvideAdvisorPass,

		// Surfaces
		ProvideHandler,
		ProvideRunner,
		ProvideApp,
	)
	return &server.App{}, nil
}
