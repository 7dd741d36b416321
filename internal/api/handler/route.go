package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/smarttime/smarttime/internal/api/middleware"
	"github.com/smarttime/smarttime/internal/api/models"
	"github.com/smarttime/smarttime/internal/api/response"
	"github.com/smarttime/smarttime/internal/explain"
	"github.com/smarttime/smarttime/internal/geocode"
	"github.com/smarttime/smarttime/internal/routing"
)

// RouteHandler handles route evaluation endpoints.
type RouteHandler struct {
	service   *routing.Service
	resolver  *geocode.Resolver
	explainer *explain.Generator
	metrics   *middleware.ProviderMetrics
	logger    zerolog.Logger
}

// RouteHandlerConfig holds dependencies for the route handler.
type RouteHandlerConfig struct {
	Service   *routing.Service
	Resolver  *geocode.Resolver
	Explainer *explain.Generator
	Metrics   *middleware.ProviderMetrics
	Logger    zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(cfg RouteHandlerConfig) *RouteHandler {
	return &RouteHandler{
		service:   cfg.Service,
		resolver:  cfg.Resolver,
		explainer: cfg.Explainer,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// EvaluateRoute handles POST /v1/routes:evaluate - fetch, score, and
// rank route candidates between two locations.
func (h *RouteHandler) EvaluateRoute(w http.ResponseWriter, r *http.Request) {
	var input models.RouteEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if input.Origin.IsZero() {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "origin", Message: "required"})
	}
	if input.Destination.IsZero() {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "destination", Message: "required"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "origin and destination are required", fieldErrors)
		return
	}

	ctx := r.Context()

	origin, err := h.resolver.Resolve(ctx, toGeocodeInput(input.Origin))
	if err != nil {
		writeRoutingError(w, r, err)
		return
	}
	destination, err := h.resolver.Resolve(ctx, toGeocodeInput(input.Destination))
	if err != nil {
		writeRoutingError(w, r, err)
		return
	}

	// An absent departure time stays zero: sources then skip the
	// hour-of-day congestion estimate and tag routes medium.
	var departureTime time.Time
	if input.DepartureTime != nil && !input.DepartureTime.IsZero() {
		departureTime = input.DepartureTime.Time()
	}

	start := time.Now()
	eval, err := h.service.EvaluateRoutes(ctx, routing.FetchRequest{
		Origin:        origin,
		Destination:   destination,
		DepartureTime: departureTime,
		Preferences:   toPreferences(input.Preferences),
	})
	if h.metrics != nil {
		h.metrics.RecordRequest(h.service.SourceName(), "evaluate", time.Since(start), err)
	}
	if err != nil {
		h.logger.Warn().Err(err).Msg("route evaluation failed")
		writeRoutingError(w, r, err)
		return
	}

	alternatives := make([]models.RouteOption, 0, len(eval.Alternatives))
	for _, route := range eval.Alternatives {
		alternatives = append(alternatives, toRouteOption(route))
	}

	resp := models.RouteEvaluateResponse{
		GeneratedAt:  models.Timestamp(time.Now()),
		Recommended:  toRouteOption(eval.Recommended),
		Alternatives: alternatives,
		Explanation:  h.explainer.ExplainRoute(ctx, eval),
	}

	response.JSON(w, r, http.StatusOK, resp)
}
