// Package config provides environment-backed application configuration.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/smarttime/smarttime/internal/routing"
)

// Config holds the full application configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// Environment is the deployment environment (development, production).
	Environment string

	// AllowedOrigins is the list of CORS origins. Empty means allow all.
	AllowedOrigins []string

	// MapsAPIKey is the OpenRouteService API key. When empty the service
	// runs against the built-in route simulator.
	MapsAPIKey string

	// MapsBaseURL overrides the OpenRouteService base URL.
	MapsBaseURL string

	// SimulationMode forces the route simulator even when an API key is set.
	SimulationMode bool

	// GeocodeAPIKey is the geocoding API key. When empty the resolver
	// falls back to deterministic demo coordinates.
	GeocodeAPIKey string

	// GeocodeBaseURL overrides the geocoding base URL.
	GeocodeBaseURL string

	// LLMAPIKey is the OpenRouter API key for route explanations. When
	// empty the explainer uses its local fallback text.
	LLMAPIKey string

	// LLMBaseURL overrides the OpenRouter base URL.
	LLMBaseURL string

	// LLMModel overrides the explanation model.
	LLMModel string

	// Weights are the route scoring weights.
	Weights routing.Weights

	// OTLPEndpoint is the OpenTelemetry collector endpoint.
	OTLPEndpoint string

	// TelemetryEnabled toggles OTLP export.
	TelemetryEnabled bool
}

// FromEnv creates a Config from environment variables, loading a local
// .env file first when present.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Port:             getEnvOrDefault("APP_PORT", "8080"),
		Environment:      getEnvOrDefault("APP_ENV", "development"),
		AllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		MapsAPIKey:       os.Getenv("MAPS_API_KEY"),
		MapsBaseURL:      os.Getenv("MAPS_BASE_URL"),
		SimulationMode:   os.Getenv("MAPS_SIMULATION_MODE") == "true",
		GeocodeAPIKey:    getEnvOrDefault("GEOCODE_API_KEY", os.Getenv("MAPS_API_KEY")),
		GeocodeBaseURL:   os.Getenv("GEOCODE_BASE_URL"),
		LLMAPIKey:        os.Getenv("LLM_API_KEY"),
		LLMBaseURL:       os.Getenv("LLM_BASE_URL"),
		LLMModel:         os.Getenv("LLM_MODEL"),
		Weights:          weightsFromEnv(),
		OTLPEndpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled: os.Getenv("OTEL_ENABLED") == "true",
	}
}

// UseSimulator reports whether routes should come from the simulator
// instead of the live directions provider.
func (c Config) UseSimulator() bool {
	return c.SimulationMode || c.MapsAPIKey == ""
}

// weightsFromEnv builds scoring weights from SCORE_WEIGHT_* overrides.
// Unset variables keep their default values.
func weightsFromEnv() routing.Weights {
	w := routing.DefaultWeights()
	w.DurationMinutes = getEnvFloat("SCORE_WEIGHT_DURATION", w.DurationMinutes)
	w.DistanceKm = getEnvFloat("SCORE_WEIGHT_DISTANCE", w.DistanceKm)
	w.Turns = getEnvFloat("SCORE_WEIGHT_TURNS", w.Turns)
	w.BlockedPenalty = getEnvFloat("SCORE_WEIGHT_BLOCKED", w.BlockedPenalty)
	return w
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
