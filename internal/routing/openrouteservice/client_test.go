package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smarttime/smarttime/internal/routing"
	"github.com/smarttime/smarttime/pkg/polyline"
)

var testGeometry = polyline.Encode([]polyline.Coordinate{
	{Lat: 19.4326, Lng: -99.1332},
	{Lat: 19.4380, Lng: -99.1250},
	{Lat: 19.4450, Lng: -99.1100},
	{Lat: 19.4500, Lng: -99.1000},
})

func successBody(t *testing.T) []byte {
	t.Helper()
	resp := orsResponse{
		Routes: []orsRoute{
			{
				Summary:  routeSummary{Distance: 12000, Duration: 900},
				Geometry: testGeometry,
				Segments: []routeSegment{
					{Steps: []routeStep{
						{Instruction: "Head north", Name: "Av. Insurgentes", Distance: 8000},
						{Instruction: "Turn right", Name: "Calle 5", Distance: 3000},
						{Instruction: "Arrive", Distance: 1000},
					}},
				},
			},
			{
				Summary:  routeSummary{Distance: 14500, Duration: 1100},
				Geometry: testGeometry,
				Warnings: []routeWarning{{Code: 1, Message: "Roadworks on the riverside stretch"}},
			},
		},
	}
	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshaling test response: %v", err)
	}
	return body
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
}

func testFetchRequest() routing.FetchRequest {
	return routing.FetchRequest{
		Origin:      routing.Coordinate{Lat: 19.4326, Lng: -99.1332},
		Destination: routing.Coordinate{Lat: 19.4500, Lng: -99.1000},
	}
}

func TestClient_Routes_NormalizesProviderRoutes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/directions/driving-car" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "test-key" {
			t.Errorf("expected API key in Authorization header")
		}
		_, _ = w.Write(successBody(t))
	})

	req := testFetchRequest()
	req.DepartureTime = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) // rush hour

	routes, err := client.Routes(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}

	first := routes[0]
	if first.ID != "ors-1" {
		t.Errorf("expected positional id ors-1, got %s", first.ID)
	}
	if first.DistanceMeters != 12000 || first.DurationSeconds != 900 {
		t.Errorf("unexpected distance/duration: %d/%d", first.DistanceMeters, first.DurationSeconds)
	}
	if first.TurnCount != 3 || first.TurnCountEstimated {
		t.Errorf("expected 3 measured turns, got %d (estimated=%v)", first.TurnCount, first.TurnCountEstimated)
	}
	if first.Summary != "Via Av. Insurgentes" {
		t.Errorf("unexpected summary %q", first.Summary)
	}
	if first.Congestion != routing.CongestionHigh {
		t.Errorf("expected high congestion at 08:00, got %s", first.Congestion)
	}
	if len(first.Geometry) != 4 {
		t.Fatalf("expected 4 geometry points, got %d", len(first.Geometry))
	}
	// Geometry is (lat, lng) in traversal order: first point is the origin.
	if first.Geometry[0].Lat < 19.43 || first.Geometry[0].Lat > 19.44 {
		t.Errorf("geometry axis order looks wrong: first point %+v", first.Geometry[0])
	}

	second := routes[1]
	if second.ID != "ors-2" {
		t.Errorf("expected positional id ors-2, got %s", second.ID)
	}
	// No steps: turn count falls back to the density heuristic.
	if !second.TurnCountEstimated || second.TurnCount != routing.EstimateTurnCount(4) {
		t.Errorf("expected estimated turn count, got %d (estimated=%v)", second.TurnCount, second.TurnCountEstimated)
	}
	if len(second.BlockedSegments) != 1 || second.BlockedSegments[0] != "Roadworks on the riverside stretch" {
		t.Errorf("expected warning mapped to blocked segment, got %v", second.BlockedSegments)
	}
}

func TestClient_Routes_DropsDegenerateRoutes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		resp := orsResponse{
			Routes: []orsRoute{
				{Summary: routeSummary{Distance: 0, Duration: 900}, Geometry: testGeometry},
				{Summary: routeSummary{Distance: 12000, Duration: 0}, Geometry: testGeometry},
				{Summary: routeSummary{Distance: 12000, Duration: 900}, Geometry: testGeometry},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	routes, err := client.Routes(context.Background(), testFetchRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected degenerate routes to be dropped, got %d routes", len(routes))
	}
	if routes[0].ID != "ors-1" {
		t.Errorf("surviving route should get id ors-1, got %s", routes[0].ID)
	}
}

func TestClient_Routes_AllDegenerateFailsWithNoRoutes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		resp := orsResponse{
			Routes: []orsRoute{
				{Summary: routeSummary{Distance: 0, Duration: 0}, Geometry: testGeometry},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	_, err := client.Routes(context.Background(), testFetchRequest())
	if !errors.Is(err, routing.ErrNoRoutesAvailable) {
		t.Errorf("expected ErrNoRoutesAvailable, got %v", err)
	}
}

func TestClient_Routes_AlternativesRejectedFallback(t *testing.T) {
	var calls atomic.Int32
	var firstHadAlternatives, secondHadAlternatives bool

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req orsRequest
		_ = json.Unmarshal(body, &req)

		switch calls.Add(1) {
		case 1:
			firstHadAlternatives = req.AlternativeRoutes != nil
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":2004,"message":"alternative routes not supported"}}`))
		default:
			secondHadAlternatives = req.AlternativeRoutes != nil
			_, _ = w.Write(successBody(t))
		}
	})

	routes, err := client.Routes(context.Background(), testFetchRequest())
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes from fallback, got %d", len(routes))
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected exactly one fallback retry (2 calls), got %d", got)
	}
	if !firstHadAlternatives {
		t.Error("first attempt should request alternatives")
	}
	if secondHadAlternatives {
		t.Error("fallback attempt must not request alternatives")
	}
}

// timeoutError satisfies net.Error with Timeout() == true.
type timeoutError struct{}

func (timeoutError) Error() string   { return "deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// timeoutDoer times out the first failTimes calls, then serves routes.
// Every request body is decoded and captured for later assertions.
type timeoutDoer struct {
	t         *testing.T
	failTimes int
	requests  []orsRequest
}

func (d *timeoutDoer) Do(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)
	var decoded orsRequest
	_ = json.Unmarshal(body, &decoded)
	d.requests = append(d.requests, decoded)

	if len(d.requests) <= d.failTimes {
		return nil, timeoutError{}
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(successBody(d.t))),
	}, nil
}

func TestClient_Routes_TimeoutFallsBackWithoutAlternatives(t *testing.T) {
	doer := &timeoutDoer{t: t, failTimes: 1}
	client := NewClient(ClientConfig{APIKey: "test-key", HTTPClient: doer})

	routes, err := client.Routes(context.Background(), testFetchRequest())
	if err != nil {
		t.Fatalf("expected fallback to succeed after timeout, got %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes from fallback, got %d", len(routes))
	}

	if len(doer.requests) != 2 {
		t.Fatalf("expected exactly one fallback retry (2 calls), got %d", len(doer.requests))
	}
	if doer.requests[0].AlternativeRoutes == nil {
		t.Error("first attempt should request alternatives")
	}
	if doer.requests[1].AlternativeRoutes != nil {
		t.Error("fallback attempt must not request alternatives")
	}
}

func TestClient_Routes_TimeoutTwiceFails(t *testing.T) {
	doer := &timeoutDoer{t: t, failTimes: 2}
	client := NewClient(ClientConfig{APIKey: "test-key", HTTPClient: doer})

	_, err := client.Routes(context.Background(), testFetchRequest())
	if !errors.Is(err, routing.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
	if len(doer.requests) != 2 {
		t.Errorf("expected exactly 2 calls (one fallback), got %d", len(doer.requests))
	}
}

func TestClient_Routes_AlternativesRejectedTwiceFails(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":2004,"message":"alternative routes not supported"}}`))
	})

	_, err := client.Routes(context.Background(), testFetchRequest())
	if !errors.Is(err, routing.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected exactly 2 calls (one fallback), got %d", got)
	}
}

func TestClient_Routes_PreferenceMapping(t *testing.T) {
	var captured orsRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_, _ = w.Write(successBody(t))
	})

	req := testFetchRequest()
	req.Preferences = routing.RoutePreferences{
		AvoidTolls:     true,
		AvoidFerries:   true,
		PreferHighways: true, // unsupported, silently ignored
	}

	if _, err := client.Routes(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Options == nil {
		t.Fatal("expected avoid_features options")
	}
	got := map[string]bool{}
	for _, f := range captured.Options.AvoidFeatures {
		got[f] = true
	}
	if !got["tollways"] || !got["ferries"] {
		t.Errorf("expected tollways and ferries in avoid_features, got %v", captured.Options.AvoidFeatures)
	}
	if len(captured.Options.AvoidFeatures) != 2 {
		t.Errorf("preferHighways must not map to a provider option, got %v", captured.Options.AvoidFeatures)
	}
}

func TestClient_Routes_InvalidParameterNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":2003,"message":"parameter coordinates is invalid"}}`))
	})

	_, err := client.Routes(context.Background(), testFetchRequest())
	if !errors.Is(err, routing.ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}

	var routingErr *routing.Error
	if !errors.As(err, &routingErr) || routingErr.Code != "INVALID_PARAMETER" {
		t.Errorf("expected INVALID_PARAMETER error code, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("invalid parameters must not trigger the fallback, got %d calls", got)
	}
}

func TestClient_Routes_RateLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
	})

	_, err := client.Routes(context.Background(), testFetchRequest())
	if !errors.Is(err, routing.ErrRateLimitExceeded) {
		t.Errorf("expected ErrRateLimitExceeded, got %v", err)
	}
}

func TestClient_Routes_InvalidCoordinates(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "test-key", HTTPClient: http.DefaultClient})

	req := testFetchRequest()
	req.Origin.Lat = 123

	_, err := client.Routes(context.Background(), req)
	if !errors.Is(err, routing.ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestEstimateCongestion(t *testing.T) {
	tests := []struct {
		hour int
		want routing.CongestionLevel
	}{
		{8, routing.CongestionHigh},
		{18, routing.CongestionHigh},
		{23, routing.CongestionLow},
		{3, routing.CongestionLow},
		{12, routing.CongestionMedium},
	}

	for _, tt := range tests {
		departure := time.Date(2024, 1, 1, tt.hour, 0, 0, 0, time.UTC)
		if got := estimateCongestion(departure); got != tt.want {
			t.Errorf("hour %d: expected %s, got %s", tt.hour, tt.want, got)
		}
	}

	if got := estimateCongestion(time.Time{}); got != routing.CongestionMedium {
		t.Errorf("zero departure time: expected medium, got %s", got)
	}
}
