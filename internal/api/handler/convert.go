package handler

import (
	"errors"
	"net/http"

	"github.com/smarttime/smarttime/internal/api/models"
	"github.com/smarttime/smarttime/internal/api/response"
	"github.com/smarttime/smarttime/internal/geocode"
	"github.com/smarttime/smarttime/internal/provider/resilience"
	"github.com/smarttime/smarttime/internal/routing"
)

// toGeocodeInput converts an API location to a resolver input.
func toGeocodeInput(loc models.Location) geocode.Input {
	if loc.Point != nil {
		return geocode.Input{
			Coord: &routing.Coordinate{Lat: loc.Point.Lat, Lng: loc.Point.Lng},
		}
	}
	return geocode.Input{Text: loc.Text}
}

// toPreferences converts API preferences to domain preferences.
func toPreferences(prefs *models.RoutePreferences) routing.RoutePreferences {
	if prefs == nil {
		return routing.RoutePreferences{}
	}
	return routing.RoutePreferences{
		AvoidTolls:     prefs.AvoidTolls,
		PreferHighways: prefs.PreferHighways,
		AvoidFerries:   prefs.AvoidFerries,
	}
}

// toRouteOption converts a scored domain route to its API shape.
func toRouteOption(r routing.RouteOption) models.RouteOption {
	geometry := make([][]float64, 0, len(r.Geometry))
	for _, c := range r.Geometry {
		geometry = append(geometry, []float64{c.Lat, c.Lng})
	}

	return models.RouteOption{
		ID:                 r.ID,
		Summary:            r.Summary,
		DistanceMeters:     r.DistanceMeters,
		DurationSeconds:    r.DurationSeconds,
		Geometry:           geometry,
		NumberOfTurns:      r.TurnCount,
		TurnCountEstimated: r.TurnCountEstimated,
		CongestionLevel:    models.CongestionLevel(r.Congestion),
		BlockedSegments:    r.BlockedSegments,
		Score:              r.Score,
	}
}

// toDepartureCandidate converts a domain departure candidate to its API shape.
func toDepartureCandidate(c routing.DepartureCandidate) models.DepartureCandidate {
	return models.DepartureCandidate{
		DepartureTime:            models.Timestamp(c.DepartureTime),
		ArrivalTime:              models.Timestamp(c.ArrivalTime),
		EstimatedDurationSeconds: c.EstimatedDurationSeconds,
		Route:                    toRouteOption(c.Route),
		Score:                    c.Score,
	}
}

// writeRoutingError maps domain errors to problem responses.
func writeRoutingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, geocode.ErrNotResolvable):
		response.UnprocessableEntity(w, r, err.Error())
	case errors.Is(err, routing.ErrInvalidCoordinates):
		response.BadRequest(w, r, "coordinates out of range", nil)
	case errors.Is(err, routing.ErrNoRoutesAvailable):
		response.BadGateway(w, r, "routing provider returned no usable routes")
	case errors.Is(err, routing.ErrRateLimitExceeded),
		errors.Is(err, routing.ErrProviderUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen):
		response.ServiceUnavailable(w, r, "routing provider is temporarily unavailable")
	default:
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
