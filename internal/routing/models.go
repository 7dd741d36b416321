// Package routing provides route scoring, selection, and departure-time search.
package routing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for routing operations.
var (
	// ErrNoRoutesAvailable indicates the provider returned zero usable routes.
	ErrNoRoutesAvailable = errors.New("no routes available between the given points")
	// ErrEmptyCandidateSet indicates the selector was called on an empty set.
	// This is a programming-contract violation, not a user-facing condition.
	ErrEmptyCandidateSet = errors.New("empty candidate set")
	// ErrProviderUnavailable indicates the directions provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("directions provider unavailable")
	// ErrRateLimitExceeded indicates the provider API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Source produces candidate routes for an origin/destination/time.
// The real-provider path and the simulation path are interchangeable
// implementations, selected once at process configuration time.
type Source interface {
	// Routes returns at least one usable route or fails with ErrNoRoutesAvailable.
	Routes(ctx context.Context, req FetchRequest) ([]RouteOption, error)
	// Name returns the source identifier for logging and health reporting.
	Name() string
}

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Validate checks that the coordinate is within valid ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Lng)
	}
	return nil
}

// RoutePreferences holds optional routing preference flags.
// Flags the provider does not support are silently ignored.
type RoutePreferences struct {
	AvoidTolls     bool
	PreferHighways bool
	AvoidFerries   bool
}

// FetchRequest is the request for obtaining candidate routes.
type FetchRequest struct {
	Origin      Coordinate
	Destination Coordinate

	// DepartureTime is the intended departure instant. The zero value
	// means "leave now". Congestion tagging depends on the departure hour.
	DepartureTime time.Time

	Preferences RoutePreferences
}

// CongestionLevel is a coarse traffic-density tag attached to a route.
// It is informational only and not used numerically in scoring.
type CongestionLevel string

const (
	CongestionLow     CongestionLevel = "low"
	CongestionMedium  CongestionLevel = "medium"
	CongestionHigh    CongestionLevel = "high"
	CongestionUnknown CongestionLevel = "unknown"
)

// RouteOption represents a single scored route candidate. Options are
// created fresh per request, scored once, and discarded after the
// response is sent; they carry no cross-request identity.
type RouteOption struct {
	// ID identifies the candidate within one evaluation batch.
	ID string

	// Summary is a human-readable label for the route.
	Summary string

	DistanceMeters  int
	DurationSeconds int

	// Geometry is the origin-to-destination path in (lat, lng) order.
	// It contains at least 2 points and must never be reordered.
	Geometry []Coordinate

	// TurnCount is the number of turns on the route. When the provider
	// supplies no step data it is derived from geometry density and
	// TurnCountEstimated is set.
	TurnCount          int
	TurnCountEstimated bool

	Congestion      CongestionLevel
	BlockedSegments []string

	// Score is assigned once by the scorer and never mutated afterward.
	// Lower is better.
	Score float64
}

// EstimateTurnCount derives a turn-count proxy from geometry density.
// This is a heuristic stand-in for measured step counts, never below 1.
func EstimateTurnCount(geometryPoints int) int {
	n := geometryPoints / 15
	if n < 1 {
		return 1
	}
	return n
}

// DepartureCandidate pairs a hypothetical departure instant with its
// best-scoring route, evaluated against a target arrival.
type DepartureCandidate struct {
	DepartureTime            time.Time
	ArrivalTime              time.Time
	EstimatedDurationSeconds int
	Route                    RouteOption
	Score                    float64
}

// Error provides detailed error information from a route source.
type Error struct {
	Source  string // Source that generated the error
	Code    string // Error code from the source
	Message string // Human-readable error message
	Err     error  // Underlying sentinel error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
