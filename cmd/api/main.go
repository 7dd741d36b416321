// Package main provides the entrypoint for the SmartTime API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/smarttime/smarttime/internal/api"
	"github.com/smarttime/smarttime/internal/api/middleware"
	"github.com/smarttime/smarttime/internal/config"
	"github.com/smarttime/smarttime/internal/explain"
	"github.com/smarttime/smarttime/internal/geocode"
	"github.com/smarttime/smarttime/internal/provider/resilience"
	"github.com/smarttime/smarttime/internal/routing"
	"github.com/smarttime/smarttime/internal/routing/openrouteservice"
	"github.com/smarttime/smarttime/internal/routing/simulator"
	"github.com/smarttime/smarttime/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "smarttime-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting SmartTime API")

	cfg := config.FromEnv()

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	// Provider health registry backs the ops status endpoints
	registry := resilience.NewRegistry()

	// Select the route source: live OpenRouteService when an API key is
	// configured, the deterministic simulator otherwise.
	var source routing.Source
	if cfg.UseSimulator() {
		source = simulator.New(log)
		log.Warn().Msg("no directions API key configured - using route simulator")
	} else {
		source = openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.MapsAPIKey,
			BaseURL:  cfg.MapsBaseURL,
			Registry: registry,
			Logger:   log,
		})
		log.Info().Msg("OpenRouteService route source initialized")
	}

	routingService := routing.NewService(routing.ServiceConfig{
		Source:  source,
		Weights: cfg.Weights,
		Logger:  log,
	})
	log.Info().
		Str("source", routingService.SourceName()).
		Msg("routing service initialized")

	resolver := geocode.NewResolver(geocode.ResolverConfig{
		APIKey:   cfg.GeocodeAPIKey,
		BaseURL:  cfg.GeocodeBaseURL,
		Registry: registry,
		Logger:   log,
	})
	if cfg.GeocodeAPIKey == "" {
		log.Warn().Msg("no geocoding API key configured - using demo coordinates")
	}

	explainer := explain.NewGenerator(explain.GeneratorConfig{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Logger:  log,
	})
	if cfg.LLMAPIKey == "" {
		log.Warn().Msg("no LLM API key configured - explanations use local fallback")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		AllowedOrigins:  cfg.AllowedOrigins,
		SimulationMode:  cfg.UseSimulator(),
		Metrics:         metrics,
		ProviderMetrics: providerMetrics,
		Registry:        registry,
		RoutingService:  routingService,
		Resolver:        resolver,
		Explainer:       explainer,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
