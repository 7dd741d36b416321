package routing

// BestRoute returns the route with the minimum score from a non-empty,
// already-scored set. Ties are broken by input order: the first route
// with the minimum score wins, because provider order often reflects
// provider-side preference ranking. The scan is stable left-to-right;
// the input is never re-sorted.
//
// Calling BestRoute with an empty set violates the caller contract and
// returns ErrEmptyCandidateSet.
func BestRoute(routes []RouteOption) (RouteOption, error) {
	if len(routes) == 0 {
		return RouteOption{}, ErrEmptyCandidateSet
	}

	best := routes[0]
	for _, r := range routes[1:] {
		if r.Score < best.Score {
			best = r
		}
	}
	return best, nil
}

// bestDeparture applies the same minimum-score, first-wins rule to
// departure candidates.
func bestDeparture(candidates []DepartureCandidate) (DepartureCandidate, error) {
	if len(candidates) == 0 {
		return DepartureCandidate{}, ErrEmptyCandidateSet
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score < best.Score {
			best = c
		}
	}
	return best, nil
}
