// Package api provides the HTTP API for SmartTime.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/smarttime/smarttime/internal/api/handler"
	"github.com/smarttime/smarttime/internal/api/middleware"
	"github.com/smarttime/smarttime/internal/explain"
	"github.com/smarttime/smarttime/internal/geocode"
	"github.com/smarttime/smarttime/internal/provider/resilience"
	"github.com/smarttime/smarttime/internal/routing"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version         string
	BuildTime       string
	Logger          zerolog.Logger
	ServiceName     string
	AllowedOrigins  []string
	SimulationMode  bool
	Metrics         *middleware.Metrics
	ProviderMetrics *middleware.ProviderMetrics
	Registry        *resilience.Registry
	RoutingService  *routing.Service
	Resolver        *geocode.Resolver
	Explainer       *explain.Generator
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "smarttime-api"
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	})

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(corsHandler.Handler)             // CORS for browser clients
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.RequireJSON)          // Reject non-JSON request bodies
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:        cfg.Version,
		BuildTime:      cfg.BuildTime,
		RouteSource:    cfg.RoutingService.SourceName(),
		SimulationMode: cfg.SimulationMode,
		Registry:       cfg.Registry,
	})
	routeHandler := handler.NewRouteHandler(handler.RouteHandlerConfig{
		Service:   cfg.RoutingService,
		Resolver:  cfg.Resolver,
		Explainer: cfg.Explainer,
		Metrics:   cfg.ProviderMetrics,
		Logger:    cfg.Logger,
	})

	// Rate limit middleware per endpoint category
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		// Route evaluation and departure search fan out to routing
		// providers - strict rate limiting
		r.With(expensiveRateLimit).Post("/routes:evaluate", routeHandler.EvaluateRoute)
		r.With(expensiveRateLimit).Post("/departures:search", routeHandler.SearchDepartures)
	})

	return r
}
