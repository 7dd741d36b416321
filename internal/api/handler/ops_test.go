package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttime/smarttime/internal/api/handler"
	"github.com/smarttime/smarttime/internal/api/models"
	"github.com/smarttime/smarttime/internal/provider/resilience"
)

func newTestOpsHandler(registry *resilience.Registry) *handler.OpsHandler {
	return handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:        "1.2.3",
		BuildTime:      "2024-01-01T00:00:00Z",
		RouteSource:    "openrouteservice",
		SimulationMode: false,
		Registry:       registry,
	})
}

func getJSON(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestOpsHandler_HealthCheck(t *testing.T) {
	h := newTestOpsHandler(nil)

	w := getJSON(h.HealthCheck, "/v1/ops/health")

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "1.2.3", health.Details["version"])
	assert.Equal(t, "2024-01-01T00:00:00Z", health.Details["buildTime"])
}

func TestOpsHandler_ReadinessCheck_NoRegistry(t *testing.T) {
	h := newTestOpsHandler(nil)

	w := getJSON(h.ReadinessCheck, "/v1/ops/ready")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOpsHandler_ReadinessCheck_HealthyProviders(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("openrouteservice", resilience.NewClient(resilience.DefaultClientConfig("openrouteservice")))
	registry.Register("geocoder", resilience.NewClient(resilience.DefaultClientConfig("geocoder")))

	h := newTestOpsHandler(registry)

	w := getJSON(h.ReadinessCheck, "/v1/ops/ready")

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestOpsHandler_SystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("openrouteservice", resilience.NewClient(resilience.DefaultClientConfig("openrouteservice")))
	registry.RecordSuccess("openrouteservice")
	registry.RecordFailure("openrouteservice", errors.New("upstream timeout"))

	h := newTestOpsHandler(registry)

	w := getJSON(h.SystemStatus, "/v1/ops/status")

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	err := json.Unmarshal(w.Body.Bytes(), &status)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.GreaterOrEqual(t, status.UptimeSeconds, int64(0))
	assert.Equal(t, "openrouteservice", status.RouteSource)
	assert.False(t, status.SimulationMode)

	require.Len(t, status.Providers, 1)
	p := status.Providers[0]
	assert.Equal(t, "openrouteservice", p.Provider)
	assert.Equal(t, models.HealthStatusOK, p.Status)
	assert.NotNil(t, p.LastSuccessAt)
	assert.NotNil(t, p.LastFailureAt)
	require.NotNil(t, p.Message)
	assert.Equal(t, "upstream timeout", *p.Message)
}

func TestOpsHandler_SystemStatus_EmptyRegistry(t *testing.T) {
	h := newTestOpsHandler(resilience.NewRegistry())

	w := getJSON(h.SystemStatus, "/v1/ops/status")

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	err := json.Unmarshal(w.Body.Bytes(), &status)
	require.NoError(t, err)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Empty(t, status.Providers)
}
