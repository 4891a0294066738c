// Package api provides the HTTP API for OptiRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/api/handler"
	"github.com/optiroute/optiroute/internal/api/middleware"
	"github.com/optiroute/optiroute/internal/auth"
	"github.com/optiroute/optiroute/internal/evaluate"
	"github.com/optiroute/optiroute/internal/provider/resilience"
	"github.com/optiroute/optiroute/internal/route"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version      string
	BuildTime    string
	Logger       zerolog.Logger
	ServiceName  string
	Metrics      *middleware.Metrics
	Tokens       *auth.JWTService
	RouteService *route.Service
	PriceService *evaluate.PriceService
	Providers    *resilience.Registry
	DB           *pgxpool.Pool

	// Queue enqueues async optimizations; nil disables the async path.
	Queue handler.OptimizeQueue
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "optiroute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type
	r.Use(middleware.RequireJSON)          // Reject non-JSON bodies

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB, cfg.Providers)
	routeHandler := handler.NewRouteHandler(cfg.RouteService, cfg.Queue, cfg.Logger)
	fuelPriceHandler := handler.NewFuelPriceHandler(cfg.PriceService, cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.Tokens)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByTenant(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)       // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Fuel price endpoint (public) - standard rate limiting
		r.With(standardRateLimit).Get("/fuel/prices", fuelPriceHandler.ListPrices)

		// Route endpoints (authenticated) - tenant-based rate limiting
		r.Route("/routes", func(r chi.Router) {
			r.Use(authMiddleware)

			// Optimization is expensive, lists and reads are not.
			r.With(expensiveRateLimit).Post("/", routeHandler.CreateRoute)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByTenant(middleware.StandardRateLimit))
				r.Get("/", routeHandler.ListRoutes)
				r.Route("/{routeId}", func(r chi.Router) {
					r.Get("/", routeHandler.GetRoute)
					r.Patch("/", routeHandler.UpdateRouteStatus)
					r.Delete("/", routeHandler.DeleteRoute)
				})
			})
		})
	})

	return r
}
