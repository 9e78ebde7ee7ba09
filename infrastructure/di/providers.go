package di

import (
	"context"
	"fmt"
	"time"

	"pulse-backend/application/canvas"
	"pulse-backend/application/commands/bus"
	commandhandlers "pulse-backend/application/commands/handlers"
	"pulse-backend/application/ports"
	"pulse-backend/application/queries"
	querybus "pulse-backend/application/queries/bus"
	queryhandlers "pulse-backend/application/queries/handlers"
	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/messaging/eventbridge"
	"pulse-backend/infrastructure/messaging/local"
	"pulse-backend/infrastructure/messaging/websocket"
	"pulse-backend/infrastructure/persistence/dynamodb"
	"pulse-backend/infrastructure/persistence/filestore"
	"pulse-backend/infrastructure/render"
	"pulse-backend/pkg/auth"
	"pulse-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// RequestsPerMinute is the rate limit applied per client IP and per user
const RequestsPerMinute = 600

const slowQueryThreshold = 500 * time.Millisecond

// Subscriptions marks that event handlers are attached to the bus
type Subscriptions struct {
	Handlers int
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideFileStore opens the JSON file store; nil unless the file backend is selected
func ProvideFileStore(cfg *config.Config, logger *zap.Logger) (*filestore.Store, error) {
	if cfg.StorageBackend != config.StorageFile {
		return nil, nil
	}
	return filestore.NewStore(cfg.DataDir, logger)
}

// ProvideDiagramRepository selects the configured storage backend
func ProvideDiagramRepository(
	cfg *config.Config,
	client *awsdynamodb.Client,
	store *filestore.Store,
	logger *zap.Logger,
) (ports.DiagramRepository, error) {
	switch cfg.StorageBackend {
	case config.StorageFile:
		return store, nil
	case config.StorageDynamoDB:
		return dynamodb.NewDiagramRepository(client, cfg.DynamoDBTable, logger), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// ProvideConnectionStore creates the websocket connection store
func ProvideConnectionStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.ConnectionStore {
	return dynamodb.NewConnectionStore(client, cfg.ConnectionsTable, logger)
}

// ProvideCollector creates the Prometheus collector; nil when metrics go to CloudWatch
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if cfg.MetricsBackend != config.MetricsPrometheus {
		return nil
	}
	return observability.NewCollector(cfg.MetricsNamespace)
}

// ProvideMetrics creates the CloudWatch recorder; nil when metrics go to Prometheus
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	if cfg.MetricsBackend != config.MetricsCloudWatch {
		return nil
	}
	namespace := fmt.Sprintf("Pulse/%s", cfg.Environment)
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideRecorder picks whichever metrics backend was created
func ProvideRecorder(collector *observability.Collector, metrics *observability.Metrics) observability.Recorder {
	switch {
	case collector != nil:
		return collector
	case metrics != nil:
		return metrics
	}
	return observability.NopRecorder{}
}

// ProvideTracer creates the X-Ray tracer; nil when tracing is off
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer("pulse-backend")
}

// ProvideEventPublisher creates the EventBridge publisher; nil without a bus name
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideEventBus creates the in-process event bus
func ProvideEventBus(publisher ports.EventPublisher, logger *zap.Logger) *local.Bus {
	return local.NewBus(publisher, logger)
}

// ProvideInMemoryCache creates the snapshot cache
func ProvideInMemoryCache() *InMemoryCache {
	return NewInMemoryCache()
}

// ProvideSnapshotReader creates the cached snapshot loader
func ProvideSnapshotReader(
	repo ports.DiagramRepository,
	cache *InMemoryCache,
	tracer *observability.Tracer,
	recorder observability.Recorder,
	logger *zap.Logger,
) *queries.SnapshotReader {
	return queries.NewSnapshotReader(repo, cache, tracer, recorder, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	repo ports.DiagramRepository,
	eventBus *local.Bus,
	recorder observability.Recorder,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()
	commandBus.Use(bus.LoggingMiddleware(logger))
	if err := commandhandlers.Register(commandBus, repo, eventBus, recorder, logger); err != nil {
		return nil, fmt.Errorf("failed to register command handlers: %w", err)
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(reader *queries.SnapshotReader, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	queryBus.Use(querybus.SlowQueryMiddleware(logger, slowQueryThreshold))
	if err := queryhandlers.Register(queryBus, reader, logger); err != nil {
		return nil, fmt.Errorf("failed to register query handlers: %w", err)
	}
	return queryBus, nil
}

// ProvideRenderer creates the render engine client
func ProvideRenderer(
	cfg *config.Config,
	tracer *observability.Tracer,
	recorder observability.Recorder,
	logger *zap.Logger,
) *render.HTTPRenderer {
	rc := render.DefaultHTTPRendererConfig(cfg.RenderEndpoint)
	rc.Timeout = cfg.RenderTimeout
	return render.NewHTTPRenderer(rc, tracer, recorder, logger)
}

// ProvideResolver creates the render-id resolver with the default probes
func ProvideResolver() *render.Resolver {
	return render.NewResolver(render.DefaultProbes()...)
}

// ProvideCanvasRegistry creates the registry of mounted canvases
func ProvideCanvasRegistry(
	cfg *config.Config,
	reader *queries.SnapshotReader,
	renderer *render.HTTPRenderer,
	resolver *render.Resolver,
	recorder observability.Recorder,
	logger *zap.Logger,
) *canvas.Registry {
	return canvas.NewRegistry(canvas.Deps{
		Fetch:     reader.Load,
		Renderer:  renderer,
		Resolver:  resolver,
		Bridge:    canvas.NewBridge(),
		Recorder:  recorder,
		Logger:    logger,
		Direction: cfg.DiagramDirection,
	}, cfg.CanvasIdleTimeout)
}

// ProvideJWTService creates the session token service
func ProvideJWTService(cfg *config.Config) (*auth.JWTService, error) {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey: cfg.SigningSecret(),
		Issuer:    cfg.JWTIssuer,
		Audience:  []string{"pulse-api"},
		TTL:       cfg.SessionTTL,
	})
}

// ProvideUserStore loads the users file, or the demo accounts when none is configured
func ProvideUserStore(cfg *config.Config, logger *zap.Logger) (*auth.UserStore, error) {
	if cfg.UsersFile != "" {
		return auth.LoadUsers(cfg.UsersFile)
	}
	logger.Warn("USERS_FILE not set, using demo accounts")
	return auth.DemoUsers()
}

// ProvideRateLimiter keeps limits in DynamoDB on Lambda and in memory otherwise
func ProvideRateLimiter(cfg *config.Config, client *awsdynamodb.Client) auth.RateLimiter {
	if cfg.IsLambda {
		return auth.NewDistributedRateLimiter(client, cfg.ConnectionsTable, RequestsPerMinute, time.Minute)
	}
	return auth.NewSlidingWindowLimiter(RequestsPerMinute, time.Minute)
}

// ProvideWatcher watches the data directory; nil unless the file backend is selected
func ProvideWatcher(store *filestore.Store, eventBus *local.Bus, logger *zap.Logger) (*filestore.Watcher, error) {
	if store == nil {
		return nil, nil
	}
	return filestore.NewWatcher(store, eventBus, logger)
}

// ProvideNotifier pushes invalidations to websocket clients; nil without an endpoint
func ProvideNotifier(
	awsCfg aws.Config,
	cfg *config.Config,
	connections *dynamodb.ConnectionStore,
	logger *zap.Logger,
) *websocket.Notifier {
	if cfg.WebSocketEndpoint == "" {
		return nil
	}
	client := apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String("https://" + cfg.WebSocketEndpoint)
	})
	return websocket.NewNotifier(client, connections, logger)
}

// ProvideSubscriptions attaches event handlers to the bus. The snapshot
// cache is invalidated before any canvas refetches.
func ProvideSubscriptions(
	eventBus *local.Bus,
	reader *queries.SnapshotReader,
	registry *canvas.Registry,
	notifier *websocket.Notifier,
) (Subscriptions, error) {
	handlers := []ports.EventHandler{reader, registry}
	if notifier != nil {
		handlers = append(handlers, notifier)
	}
	for _, h := range handlers {
		if err := eventBus.Subscribe(local.AllEvents, h); err != nil {
			return Subscriptions{}, err
		}
	}
	return Subscriptions{Handlers: len(handlers)}, nil
}
