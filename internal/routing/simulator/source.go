// Package simulator provides a deterministic synthetic route source for
// running without an external directions provider. It derives a
// great-circle baseline between origin and destination and produces three
// named variants with fixed offsets, so scores differ deterministically
// and the full pipeline is testable offline.
package simulator

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/smarttime/smarttime/internal/routing"
)

// SourceName identifies the simulated route source.
const SourceName = "simulator"

const (
	// earthRadiusMeters is the mean Earth radius used for the haversine baseline.
	earthRadiusMeters = 6371000

	// geometryPoints is the fixed sampling resolution of the Bezier geometry.
	geometryPoints = 41

	// minBaselineMeters keeps near-coincident endpoints out of the
	// degenerate-route range; every variant must stay scoreable.
	minBaselineMeters = 500
)

// variant holds the fixed offsets applied to the baseline for one
// synthetic route. Distance is scaled, duration derives from a variant
// speed plus a flat addition, and curvature bends the geometry.
type variant struct {
	name            string
	distanceFactor  float64
	metersPerSecond float64
	extraSeconds    int
	turnCount       int
	curvature       float64
	congestion      routing.CongestionLevel
}

// variants are the three synthetic routes produced per request, in
// emission order.
var variants = []variant{
	{
		name:            "direct",
		distanceFactor:  1.15,
		metersPerSecond: 13.9, // ~50 km/h
		extraSeconds:    0,
		turnCount:       9,
		curvature:       0.05,
		congestion:      routing.CongestionMedium,
	},
	{
		name:            "scenic",
		distanceFactor:  1.40,
		metersPerSecond: 11.1, // ~40 km/h
		extraSeconds:    240,
		turnCount:       14,
		curvature:       -0.18,
		congestion:      routing.CongestionLow,
	},
	{
		name:            "fewer turns",
		distanceFactor:  1.25,
		metersPerSecond: 12.5, // ~45 km/h
		extraSeconds:    90,
		turnCount:       4,
		curvature:       0.10,
		congestion:      routing.CongestionHigh,
	},
}

// Source generates deterministic synthetic routes. It is stateless and
// safe for concurrent use.
type Source struct {
	logger zerolog.Logger
}

// New creates a new simulated route source.
func New(logger zerolog.Logger) *Source {
	return &Source{logger: logger}
}

// Name returns the source name.
func (s *Source) Name() string {
	return SourceName
}

// Routes produces exactly three synthetic route variants for the given
// origin and destination. Output depends only on the input coordinates.
func (s *Source) Routes(_ context.Context, req routing.FetchRequest) ([]routing.RouteOption, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, &routing.Error{
			Source:  SourceName,
			Code:    "INVALID_ORIGIN",
			Message: "invalid origin coordinates",
			Err:     routing.ErrInvalidCoordinates,
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &routing.Error{
			Source:  SourceName,
			Code:    "INVALID_DESTINATION",
			Message: "invalid destination coordinates",
			Err:     routing.ErrInvalidCoordinates,
		}
	}

	baseline := haversineMeters(req.Origin, req.Destination)
	if baseline < minBaselineMeters {
		baseline = minBaselineMeters
	}

	routes := make([]routing.RouteOption, 0, len(variants))
	for i, v := range variants {
		distance := int(baseline * v.distanceFactor)
		duration := int(float64(distance)/v.metersPerSecond) + v.extraSeconds

		routes = append(routes, routing.RouteOption{
			ID:              fmt.Sprintf("sim-%d", i+1),
			Summary:         v.name,
			DistanceMeters:  distance,
			DurationSeconds: duration,
			Geometry:        curvedPath(req.Origin, req.Destination, v.curvature),
			TurnCount:       v.turnCount,
			Congestion:      v.congestion,
		})
	}

	s.logger.Debug().
		Float64("baseline_m", baseline).
		Int("route_count", len(routes)).
		Msg("generated synthetic routes")

	return routes, nil
}

// haversineMeters computes the great-circle distance between two points.
func haversineMeters(a, b routing.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// curvedPath samples a quadratic Bezier curve from origin to destination
// whose control point is the midpoint pushed perpendicular to the
// origin-destination axis by the curvature factor. The result always has
// geometryPoints points, origin first, destination last.
func curvedPath(origin, destination routing.Coordinate, curvature float64) []routing.Coordinate {
	dLat := destination.Lat - origin.Lat
	dLng := destination.Lng - origin.Lng

	control := routing.Coordinate{
		Lat: (origin.Lat+destination.Lat)/2 - curvature*dLng,
		Lng: (origin.Lng+destination.Lng)/2 + curvature*dLat,
	}

	path := make([]routing.Coordinate, geometryPoints)
	for i := 0; i < geometryPoints; i++ {
		t := float64(i) / float64(geometryPoints-1)
		u := 1 - t
		path[i] = routing.Coordinate{
			Lat: u*u*origin.Lat + 2*u*t*control.Lat + t*t*destination.Lat,
			Lng: u*u*origin.Lng + 2*u*t*control.Lng + t*t*destination.Lng,
		}
	}
	return path
}
