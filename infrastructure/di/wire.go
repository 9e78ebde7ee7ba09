//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"pulse-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideFileStore,
	ProvideDiagramRepository,
	ProvideConnectionStore,
	ProvideCollector,
	ProvideMetrics,
	ProvideRecorder,
	ProvideTracer,
	ProvideEventPublisher,
	ProvideEventBus,
	ProvideInMemoryCache,
	ProvideSnapshotReader,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideRenderer,
	ProvideResolver,
	ProvideCanvasRegistry,
	ProvideJWTService,
	ProvideUserStore,
	ProvideRateLimiter,
	ProvideWatcher,
	ProvideNotifier,
	ProvideSubscriptions,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
