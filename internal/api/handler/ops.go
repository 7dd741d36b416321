// Package handler provides HTTP handlers for the SmartTime API.
package handler

import (
	"net/http"
	"time"

	"github.com/smarttime/smarttime/internal/api/models"
	"github.com/smarttime/smarttime/internal/api/response"
	"github.com/smarttime/smarttime/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version        string
	buildTime      string
	routeSource    string
	simulationMode bool
	registry       *resilience.Registry
	startedAt      time.Time
}

// OpsHandlerConfig holds configuration for the ops handler.
type OpsHandlerConfig struct {
	Version        string
	BuildTime      string
	RouteSource    string
	SimulationMode bool
	Registry       *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:        cfg.Version,
		buildTime:      cfg.BuildTime,
		routeSource:    cfg.RouteSource,
		simulationMode: cfg.SimulationMode,
		registry:       cfg.Registry,
		startedAt:      time.Now(),
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// The service holds no stateful dependencies, so readiness follows
// liveness unless every registered provider circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	if h.registry != nil {
		all := h.registry.GetAllHealth()
		open := 0
		for _, p := range all {
			if p.IsUnhealthy() {
				open++
			}
		}
		if len(all) > 0 && open == len(all) {
			status = models.HealthStatusFail
		} else if open > 0 {
			status = models.HealthStatusDegraded
		}
	}

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	}

	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())

	overall := models.HealthStatusOK
	var providers []models.ProviderStatus
	if h.registry != nil {
		for _, p := range h.registry.GetAllHealth() {
			ps := models.ProviderStatus{
				Provider: p.Name,
				Status:   providerStatus(p),
			}
			if p.LastSuccessAt != nil {
				ts := models.Timestamp(*p.LastSuccessAt)
				ps.LastSuccessAt = &ts
			}
			if p.LastFailureAt != nil {
				ts := models.Timestamp(*p.LastFailureAt)
				ps.LastFailureAt = &ts
			}
			if p.LastError != "" {
				msg := p.LastError
				ps.Message = &msg
			}
			providers = append(providers, ps)

			if ps.Status == models.HealthStatusFail {
				overall = models.HealthStatusDegraded
			} else if ps.Status == models.HealthStatusDegraded && overall == models.HealthStatusOK {
				overall = models.HealthStatusDegraded
			}
		}
	}

	status := models.SystemStatus{
		Status:         overall,
		Time:           now,
		Version:        h.version,
		UptimeSeconds:  int64(time.Since(h.startedAt).Seconds()),
		RouteSource:    h.routeSource,
		SimulationMode: h.simulationMode,
		Providers:      providers,
	}
	response.JSON(w, r, http.StatusOK, status)
}

// providerStatus maps circuit breaker state to a health status.
func providerStatus(p *resilience.ProviderHealth) models.HealthStatus {
	switch {
	case p.IsUnhealthy():
		return models.HealthStatusFail
	case p.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}
