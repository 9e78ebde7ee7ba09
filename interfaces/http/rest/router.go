package rest

import (
	"net/http"
	"strconv"

	"pulse-backend/application/canvas"
	"pulse-backend/application/commands/bus"
	querybus "pulse-backend/application/queries/bus"
	"pulse-backend/domain/org"
	"pulse-backend/interfaces/http/rest/handlers"
	"pulse-backend/interfaces/http/rest/middleware"
	"pulse-backend/pkg/auth"
	"pulse-backend/pkg/common"
	apperrors "pulse-backend/pkg/errors"
	"pulse-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RenderState reports the circuit breaker state of the rendering engine
type RenderState interface {
	State() string
}

// Dependencies is everything the router wires into handlers
type Dependencies struct {
	CommandBus        *bus.CommandBus
	QueryBus          *querybus.QueryBus
	Canvases          *canvas.Registry
	JWT               *auth.JWTService
	Users             *auth.UserStore
	RateLimiter       auth.RateLimiter
	RequestsPerMinute int
	Recorder          observability.Recorder
	MetricsHandler    http.Handler
	Render            RenderState
	AllowedOrigins    []string
	EnableCORS        bool
	EnableRateLimit   bool
	ErrorHandler      *apperrors.ErrorHandler
	Logger            *zap.Logger
}

// Router creates and configures the HTTP router
type Router struct {
	deps Dependencies
}

// NewRouter creates a new router instance
func NewRouter(deps Dependencies) *Router {
	if deps.Recorder == nil {
		deps.Recorder = observability.NopRecorder{}
	}
	if deps.ErrorHandler == nil {
		deps.ErrorHandler = apperrors.NewErrorHandler(deps.Logger, false)
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	return &Router{deps: deps}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	d := rt.deps
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(d.ErrorHandler.Recoverer)
	router.Use(middleware.Logger(d.Logger))
	router.Use(middleware.Metrics(d.Recorder))

	if d.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if d.MetricsHandler != nil {
		router.Handle("/metrics", d.MetricsHandler)
	}

	authHandler := handlers.NewAuthHandler(d.Users, d.JWT, d.ErrorHandler, d.Logger)
	diagramHandler := handlers.NewDiagramHandler(d.QueryBus, d.ErrorHandler, d.Logger)
	nodeHandler := handlers.NewNodeHandler(d.CommandBus, d.ErrorHandler, d.Logger)
	edgeHandler := handlers.NewEdgeHandler(d.CommandBus, d.ErrorHandler, d.Logger)
	canvasHandler := handlers.NewCanvasHandler(d.Canvases, d.CommandBus, d.ErrorHandler, d.Logger)

	adminOnly := middleware.RequireRole(d.ErrorHandler, org.RoleAdmin)

	router.Route("/api/v2", func(r chi.Router) {
		// Login is limited per client IP
		r.Group(func(r chi.Router) {
			rt.limit(r)
			r.Post("/auth/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.JWT, d.ErrorHandler, d.Logger))
			rt.limit(r)

			r.Route("/diagrams/{type}", func(r chi.Router) {
				r.Get("/", diagramHandler.GetDiagram)
				r.Get("/nodes/{nodeID}", diagramHandler.GetNode)

				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					r.Get("/raw", diagramHandler.GetRawDiagram)
					r.Post("/nodes", nodeHandler.CreateNode)
					r.Patch("/nodes/{nodeID}", nodeHandler.UpdateNode)
					r.Delete("/nodes/{nodeID}", nodeHandler.DeleteNode)
					r.Post("/edges", edgeHandler.CreateEdge)
					r.Delete("/edges/{edgeID}", edgeHandler.DeleteEdge)
				})
			})

			r.Route("/canvas", func(r chi.Router) {
				r.Post("/", canvasHandler.Mount)
				r.Post("/click", canvasHandler.Click)

				r.Route("/{token}", func(r chi.Router) {
					r.Get("/", canvasHandler.Get)
					r.Delete("/", canvasHandler.Unmount)
					r.Get("/svg", canvasHandler.SVG)
					r.Post("/load", canvasHandler.Load)
					r.Post("/rerender", canvasHandler.Rerender)
					r.Post("/close", canvasHandler.CloseDetail)
					r.Post("/nodes/{nodeID}/delete", canvasHandler.DeleteNode)
					r.Post("/nodes/{nodeID}/update", canvasHandler.UpdateNode)
				})
			})
		})
	})

	return router
}

func (rt *Router) limit(r chi.Router) {
	if !rt.deps.EnableRateLimit || rt.deps.RateLimiter == nil {
		return
	}
	r.Use(middleware.RateLimit(rt.deps.RateLimiter, rt.deps.RequestsPerMinute, rt.deps.ErrorHandler, rt.deps.Logger))
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	if err := common.RespondJSON(w, req, http.StatusOK, map[string]string{"status": "healthy"}); err != nil {
		rt.deps.Logger.Error("Failed to write health response", zap.Error(err))
	}
}

// readinessCheck reports not ready while the render circuit is open
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ready"}
	if rt.deps.Render != nil {
		state := rt.deps.Render.State()
		body["render"] = state
		if state == "open" {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	if rt.deps.Canvases != nil {
		body["canvases"] = strconv.Itoa(rt.deps.Canvases.Len())
	}
	if err := common.RespondJSON(w, req, status, body); err != nil {
		rt.deps.Logger.Error("Failed to write readiness response", zap.Error(err))
	}
}
