package models

// DepartureSearchRequest is the request body for a departure time search.
type DepartureSearchRequest struct {
	Origin      Location          `json:"origin"`
	Destination Location          `json:"destination"`
	ArrivalTime Timestamp         `json:"arrivalTime"`
	Preferences *RoutePreferences `json:"preferences,omitempty"`
}

// DepartureSearchResponse is the response for a departure time search.
type DepartureSearchResponse struct {
	GeneratedAt Timestamp            `json:"generatedAt"`
	Recommended DepartureCandidate   `json:"recommended"`
	Candidates  []DepartureCandidate `json:"candidates"`
	Explanation string               `json:"explanation,omitempty"`
}

// DepartureCandidate is one evaluated departure time.
type DepartureCandidate struct {
	DepartureTime            Timestamp   `json:"departureTime"`
	ArrivalTime              Timestamp   `json:"arrivalTime"`
	EstimatedDurationSeconds int         `json:"estimatedDurationSeconds"`
	Route                    RouteOption `json:"route"`
	Score                    float64     `json:"score"`
}
