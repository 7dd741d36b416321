package models

// RoutePreferences are optional routing preferences.
type RoutePreferences struct {
	AvoidTolls     bool `json:"avoidTolls,omitempty"`
	PreferHighways bool `json:"preferHighways,omitempty"`
	AvoidFerries   bool `json:"avoidFerries,omitempty"`
}

// RouteEvaluateRequest is the request body for evaluating routes.
type RouteEvaluateRequest struct {
	Origin        Location          `json:"origin"`
	Destination   Location          `json:"destination"`
	DepartureTime *Timestamp        `json:"departureTime,omitempty"`
	Preferences   *RoutePreferences `json:"preferences,omitempty"`
}

// RouteEvaluateResponse is the response for route evaluation.
type RouteEvaluateResponse struct {
	GeneratedAt  Timestamp     `json:"generatedAt"`
	Recommended  RouteOption   `json:"recommended"`
	Alternatives []RouteOption `json:"alternatives"`
	Explanation  string        `json:"explanation,omitempty"`
}

// RouteOption represents a single scored route alternative.
type RouteOption struct {
	ID              string `json:"id"`
	Summary         string `json:"summary"`
	DistanceMeters  int    `json:"distanceMeters"`
	DurationSeconds int    `json:"durationSeconds"`

	// Geometry is a list of [lat, lng] pairs.
	Geometry [][]float64 `json:"geometry"`

	NumberOfTurns      int             `json:"numberOfTurns"`
	TurnCountEstimated bool            `json:"turnCountEstimated,omitempty"`
	CongestionLevel    CongestionLevel `json:"congestionLevel"`
	BlockedSegments    []string        `json:"blockedSegments,omitempty"`
	Score              float64         `json:"score"`
}
