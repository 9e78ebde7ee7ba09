package di

import (
	"context"
	"time"

	"pulse-backend/application/canvas"
	"pulse-backend/application/commands/bus"
	"pulse-backend/application/ports"
	"pulse-backend/application/queries"
	querybus "pulse-backend/application/queries/bus"
	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/messaging/local"
	"pulse-backend/infrastructure/messaging/websocket"
	"pulse-backend/infrastructure/persistence/dynamodb"
	"pulse-backend/infrastructure/persistence/filestore"
	"pulse-backend/infrastructure/render"
	"pulse-backend/interfaces/http/rest"
	"pulse-backend/pkg/auth"
	apperrors "pulse-backend/pkg/errors"
	"pulse-backend/pkg/observability"

	"go.uber.org/zap"
)

const (
	cacheEvictInterval   = time.Minute
	limiterSweepInterval = 5 * time.Minute
	metricsFlushInterval = time.Minute
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Repository    ports.DiagramRepository
	Connections   *dynamodb.ConnectionStore
	EventBus      *local.Bus
	Cache         *InMemoryCache
	Snapshots     *queries.SnapshotReader
	CommandBus    *bus.CommandBus
	QueryBus      *querybus.QueryBus
	Renderer      *render.HTTPRenderer
	Canvases      *canvas.Registry
	Collector     *observability.Collector
	Metrics       *observability.Metrics
	Recorder      observability.Recorder
	Tracer        *observability.Tracer
	JWT           *auth.JWTService
	Users         *auth.UserStore
	RateLimiter   auth.RateLimiter
	Watcher       *filestore.Watcher
	Notifier      *websocket.Notifier
	Subscriptions Subscriptions
}

// Start launches the background loops. They stop when ctx is done.
func (c *Container) Start(ctx context.Context) {
	go c.Canvases.Run(ctx)
	go c.Cache.Run(ctx, cacheEvictInterval)

	if limiter, ok := c.RateLimiter.(*auth.SlidingWindowLimiter); ok {
		go limiter.Run(ctx, limiterSweepInterval)
	}
	if c.Watcher != nil {
		c.Watcher.Start()
	}
	if c.Metrics != nil {
		go c.flushMetrics(ctx)
	}

	c.Logger.Info("Container started",
		zap.String("storage", c.Config.StorageBackend),
		zap.String("metrics", c.Config.MetricsBackend),
		zap.Int("event_handlers", c.Subscriptions.Handlers),
	)
}

// Router builds the HTTP router over the container's components
func (c *Container) Router() *rest.Router {
	deps := rest.Dependencies{
		CommandBus:        c.CommandBus,
		QueryBus:          c.QueryBus,
		Canvases:          c.Canvases,
		JWT:               c.JWT,
		Users:             c.Users,
		RateLimiter:       c.RateLimiter,
		RequestsPerMinute: RequestsPerMinute,
		Recorder:          c.Recorder,
		Render:            c.Renderer,
		EnableCORS:        c.Config.EnableCORS,
		EnableRateLimit:   c.Config.EnableRateLimit,
		ErrorHandler:      apperrors.NewErrorHandler(c.Logger, !c.Config.IsProduction()),
		Logger:            c.Logger,
	}
	if c.Collector != nil {
		deps.MetricsHandler = c.Collector.Handler()
	}
	return rest.NewRouter(deps)
}

func (c *Container) flushMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Metrics.Flush(ctx)
		}
	}
}

// Close releases resources held by the container
func (c *Container) Close(ctx context.Context) {
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	c.Canvases.Close()
	if c.Metrics != nil {
		c.Metrics.Flush(ctx)
	}
	_ = c.Logger.Sync()
}
