package routing

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// departureOffsets is the fixed set of candidate offsets searched
// backward from the target arrival. A bounded, fixed-resolution search
// trades completeness for predictable cost: exactly five fetches per
// departure-time request. Output order follows this slice.
var departureOffsets = []time.Duration{
	90 * time.Minute,
	60 * time.Minute,
	45 * time.Minute,
	30 * time.Minute,
	15 * time.Minute,
}

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Source produces candidate routes.
	Source Source

	// Weights are the scoring weights. Zero value means DefaultWeights.
	Weights Weights

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service scores and selects routes and searches departure times.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	source  Source
	weights Weights
	logger  zerolog.Logger
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	weights := cfg.Weights
	if weights.IsZero() {
		weights = DefaultWeights()
	}

	return &Service{
		source:  cfg.Source,
		weights: weights,
		logger:  cfg.Logger,
	}
}

// Weights returns the scoring weights in effect.
func (s *Service) Weights() Weights {
	return s.weights
}

// SourceName returns the name of the underlying route source.
func (s *Service) SourceName() string {
	return s.source.Name()
}

// Evaluation is the result of scoring one batch of route candidates.
type Evaluation struct {
	// Recommended is the minimum-score route.
	Recommended RouteOption

	// Alternatives holds every scored candidate, recommended included,
	// in the source's original order.
	Alternatives []RouteOption
}

// EvaluateRoutes fetches candidate routes, scores each with the
// configured weights, and selects the minimum-score route.
func (s *Service) EvaluateRoutes(ctx context.Context, req FetchRequest) (*Evaluation, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, &Error{
			Source:  s.source.Name(),
			Code:    "INVALID_ORIGIN",
			Message: "invalid origin coordinates",
			Err:     ErrInvalidCoordinates,
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &Error{
			Source:  s.source.Name(),
			Code:    "INVALID_DESTINATION",
			Message: "invalid destination coordinates",
			Err:     ErrInvalidCoordinates,
		}
	}

	routes, err := s.source.Routes(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		// Sources must fail instead of returning an empty set.
		return nil, &Error{
			Source:  s.source.Name(),
			Code:    "EMPTY_RESULT",
			Message: "route source returned an empty set",
			Err:     ErrNoRoutesAvailable,
		}
	}

	for i := range routes {
		routes[i].Score = s.weights.Score(routes[i])
	}

	best, err := BestRoute(routes)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("source", s.source.Name()).
		Int("route_count", len(routes)).
		Str("recommended_id", best.ID).
		Float64("recommended_score", best.Score).
		Msg("evaluated route candidates")

	return &Evaluation{
		Recommended:  best,
		Alternatives: routes,
	}, nil
}

// DepartureSearch is the result of a departure-time search.
type DepartureSearch struct {
	// Recommended is the minimum-score departure candidate.
	Recommended DepartureCandidate

	// Candidates holds all evaluated candidates in fixed offset order
	// (90 -> 15 minutes before arrival), not sorted by score.
	Candidates []DepartureCandidate
}

// SearchDepartures evaluates the fixed set of candidate departure
// instants before the target arrival and returns the one whose best
// route scores lowest, plus every evaluated candidate.
//
// The per-offset evaluations run concurrently and are joined before
// selection. The search is all-or-nothing: the first fetch failure
// cancels the remaining in-flight fetches and fails the whole search,
// so a partial answer can never suggest an untested time is worse than
// it is.
func (s *Service) SearchDepartures(ctx context.Context, origin, destination Coordinate, arrival time.Time, prefs RoutePreferences) (*DepartureSearch, error) {
	candidates := make([]DepartureCandidate, len(departureOffsets))

	g, gctx := errgroup.WithContext(ctx)
	for i, offset := range departureOffsets {
		i := i
		departure := arrival.Add(-offset)
		g.Go(func() error {
			ev, err := s.EvaluateRoutes(gctx, FetchRequest{
				Origin:        origin,
				Destination:   destination,
				DepartureTime: departure,
				Preferences:   prefs,
			})
			if err != nil {
				return err
			}

			best := ev.Recommended
			candidates[i] = DepartureCandidate{
				DepartureTime:            departure,
				ArrivalTime:              departure.Add(time.Duration(best.DurationSeconds) * time.Second),
				EstimatedDurationSeconds: best.DurationSeconds,
				Route:                    best,
				Score:                    best.Score,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).
			Time("arrival", arrival).
			Msg("departure-time search failed")
		return nil, err
	}

	best, err := bestDeparture(candidates)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Time("arrival", arrival).
		Time("recommended_departure", best.DepartureTime).
		Float64("recommended_score", best.Score).
		Msg("departure-time search completed")

	return &DepartureSearch{
		Recommended: best,
		Candidates:  candidates,
	}, nil
}
