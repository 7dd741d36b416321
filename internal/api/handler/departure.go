package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/smarttime/smarttime/internal/api/models"
	"github.com/smarttime/smarttime/internal/api/response"
)

// SearchDepartures handles POST /v1/departures:search - evaluate a
// fixed set of candidate departure times before a target arrival and
// recommend the one with the lowest-scoring best route.
func (h *RouteHandler) SearchDepartures(w http.ResponseWriter, r *http.Request) {
	var input models.DepartureSearchRequest
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
	if input.ArrivalTime.IsZero() {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "arrivalTime", Message: "required (ISO 8601)"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "origin, destination and arrivalTime are required", fieldErrors)
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

	start := time.Now()
	search, err := h.service.SearchDepartures(ctx, origin, destination,
		input.ArrivalTime.Time(), toPreferences(input.Preferences))
	if h.metrics != nil {
		h.metrics.RecordRequest(h.service.SourceName(), "departure-search", time.Since(start), err)
	}
	if err != nil {
		h.logger.Warn().Err(err).Msg("departure-time search failed")
		writeRoutingError(w, r, err)
		return
	}

	candidates := make([]models.DepartureCandidate, 0, len(search.Candidates))
	for _, c := range search.Candidates {
		candidates = append(candidates, toDepartureCandidate(c))
	}

	resp := models.DepartureSearchResponse{
		GeneratedAt: models.Timestamp(time.Now()),
		Recommended: toDepartureCandidate(search.Recommended),
		Candidates:  candidates,
		Explanation: h.explainer.ExplainDeparture(ctx, search),
	}

	response.JSON(w, r, http.StatusOK, resp)
}
