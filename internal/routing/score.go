package routing

// Weights holds the scoring weights for route comparison. Weights are
// process-wide configuration passed in explicitly; they are never
// inferred and never changed per request.
type Weights struct {
	// DurationMinutes is the weight applied per minute of travel time.
	DurationMinutes float64

	// DistanceKm is the weight applied per kilometer of distance.
	DistanceKm float64

	// Turns is the weight applied per turn.
	Turns float64

	// BlockedPenalty is the penalty per blocked segment, expressed in
	// duration-weighted minutes.
	BlockedPenalty float64
}

// DefaultWeights returns the default scoring weights. Duration dominates,
// so the recommendation prioritizes time over distance; each blockage
// costs the equivalent of 20 minutes of weighted duration.
func DefaultWeights() Weights {
	return Weights{
		DurationMinutes: 0.7,
		DistanceKm:      0.2,
		Turns:           0.1,
		BlockedPenalty:  20,
	}
}

// IsZero reports whether no weight has been set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Score computes the scalar score for a route. Lower is better.
// The function is pure and total: it never fails for a well-formed route.
func (w Weights) Score(r RouteOption) float64 {
	// A measured zero turn count is kept as-is; only a derived count
	// missing its value falls back to the density heuristic.
	turns := r.TurnCount
	if turns == 0 && r.TurnCountEstimated {
		turns = EstimateTurnCount(len(r.Geometry))
	}

	return w.DurationMinutes*(float64(r.DurationSeconds)/60) +
		w.DistanceKm*(float64(r.DistanceMeters)/1000) +
		w.Turns*float64(turns) +
		w.BlockedPenalty*float64(len(r.BlockedSegments))
}
