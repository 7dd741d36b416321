// Package openrouteservice provides a driving-directions route source backed
// by the OpenRouteService directions API.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/smarttime/smarttime/internal/provider/resilience"
	"github.com/smarttime/smarttime/internal/routing"
	"github.com/smarttime/smarttime/pkg/polyline"
)

const (
	// SourceName identifies this route source.
	SourceName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// drivingProfile is the routing profile for car directions.
	drivingProfile = "driving-car"

	// alternativeTargetCount is the number of route candidates requested.
	alternativeTargetCount = 3
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	// APIKey is the ORS API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to the ORS API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the per-call request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenRouteService directions client. It implements
// routing.Source and normalizes provider results into RouteOptions.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	registry   *resilience.Registry
	logger     zerolog.Logger
}

// NewClient creates a new OpenRouteService client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(SourceName)
		clientCfg.Timeout = timeout
		client := resilience.NewClient(clientCfg)
		if cfg.Registry != nil {
			cfg.Registry.Register(SourceName, client)
		}
		httpClient = client
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		registry:   cfg.Registry,
		logger:     cfg.Logger,
	}
}

// Name returns the source name.
func (c *Client) Name() string {
	return SourceName
}

// Routes retrieves driving route candidates between two points.
//
// The first attempt requests alternative routes. If the provider rejects
// that request (HTTP 400 with error code 2004) or the call times out,
// exactly one fallback attempt is made without the alternatives option
// before failing.
func (c *Client) Routes(ctx context.Context, req routing.FetchRequest) ([]routing.RouteOption, error) {
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

	routes, err := c.fetch(ctx, req, true)
	if err != nil && retryWithoutAlternatives(err) {
		c.logger.Warn().Err(err).
			Msg("provider rejected alternatives request, retrying without alternatives")
		routes, err = c.fetch(ctx, req, false)
	}
	if err != nil {
		c.recordFailure(err)
		return nil, err
	}

	c.recordSuccess()
	return routes, nil
}

// fetch performs one directions request and normalizes the result.
func (c *Client) fetch(ctx context.Context, req routing.FetchRequest, withAlternatives bool) ([]routing.RouteOption, error) {
	orsReq := orsRequest{
		// ORS uses [lng, lat] axis order (GeoJSON convention).
		Coordinates: [][]float64{
			{req.Origin.Lng, req.Origin.Lat},
			{req.Destination.Lng, req.Destination.Lat},
		},
		Instructions: true,
		Geometry:     true,
		Units:        "m",
		Language:     "en",
	}

	if withAlternatives {
		orsReq.AlternativeRoutes = &alternativeRoutesOpts{
			TargetCount:  alternativeTargetCount,
			ShareFactor:  0.6,
			WeightFactor: 1.4,
		}
	}

	// Preferences map to avoid_features where ORS supports them.
	// preferHighways has no driving-car equivalent and is ignored.
	var avoid []string
	if req.Preferences.AvoidTolls {
		avoid = append(avoid, "tollways")
	}
	if req.Preferences.AvoidFerries {
		avoid = append(avoid, "ferries")
	}
	if len(avoid) > 0 {
		orsReq.Options = &orsOptions{AvoidFeatures: avoid}
	}

	body, err := json.Marshal(orsReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/directions/%s", c.baseURL, drivingProfile)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Bool("alternatives", withAlternatives).
		Msg("requesting directions from ORS")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, &routing.Error{
				Source:  SourceName,
				Code:    "TIMEOUT",
				Message: "directions request timed out",
				Err:     routing.ErrProviderUnavailable,
			}
		}
		return nil, &routing.Error{
			Source:  SourceName,
			Code:    "REQUEST_FAILED",
			Message: "failed to reach directions provider",
			Err:     routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var orsResp orsResponse
	if err := json.Unmarshal(respBody, &orsResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	routes := c.normalize(&orsResp, req.DepartureTime)
	if len(routes) == 0 {
		return nil, &routing.Error{
			Source:  SourceName,
			Code:    "NO_USABLE_ROUTES",
			Message: "provider returned no usable routes",
			Err:     routing.ErrNoRoutesAvailable,
		}
	}

	c.logger.Debug().
		Int("route_count", len(routes)).
		Msg("received directions from ORS")

	return routes, nil
}

// normalize converts provider routes into the uniform RouteOption shape.
// Routes with a missing or zero distance or duration are excluded: a
// degenerate route cannot be scored meaningfully.
func (c *Client) normalize(resp *orsResponse, departure time.Time) []routing.RouteOption {
	congestion := estimateCongestion(departure)
	options := make([]routing.RouteOption, 0, len(resp.Routes))

	for i := range resp.Routes {
		orsRoute := &resp.Routes[i]

		distance := int(orsRoute.Summary.Distance)
		duration := int(orsRoute.Summary.Duration)
		if distance <= 0 || duration <= 0 {
			c.logger.Warn().
				Int("index", i).
				Float64("distance", orsRoute.Summary.Distance).
				Float64("duration", orsRoute.Summary.Duration).
				Msg("dropping degenerate provider route")
			continue
		}

		geometry := decodeGeometry(orsRoute.Geometry)
		if len(geometry) < 2 {
			c.logger.Warn().
				Int("index", i).
				Msg("dropping provider route with degenerate geometry")
			continue
		}

		steps := 0
		for j := range orsRoute.Segments {
			steps += len(orsRoute.Segments[j].Steps)
		}

		turnCount := steps
		estimated := false
		if turnCount == 0 {
			turnCount = routing.EstimateTurnCount(len(geometry))
			estimated = true
		}

		var blocked []string
		for _, w := range orsRoute.Warnings {
			if w.Message != "" {
				blocked = append(blocked, w.Message)
			}
		}

		option := routing.RouteOption{
			ID:                 fmt.Sprintf("ors-%d", len(options)+1),
			Summary:            routeLabel(orsRoute, len(options)+1),
			DistanceMeters:     distance,
			DurationSeconds:    duration,
			Geometry:           geometry,
			TurnCount:          turnCount,
			TurnCountEstimated: estimated,
			Congestion:         congestion,
			BlockedSegments:    blocked,
		}
		options = append(options, option)
	}

	return options
}

// decodeGeometry decodes the polyline-encoded provider geometry into
// (lat, lng) points in traversal order.
func decodeGeometry(encoded string) []routing.Coordinate {
	points := polyline.Decode(encoded)
	if len(points) == 0 {
		return nil
	}

	coords := make([]routing.Coordinate, len(points))
	for i, p := range points {
		coords[i] = routing.Coordinate{Lat: p.Lat, Lng: p.Lng}
	}
	return coords
}

// routeLabel derives a human-readable route label from the longest
// named road on the route, falling back to a positional name.
func routeLabel(r *orsRoute, position int) string {
	bestName := ""
	bestDistance := 0.0
	for i := range r.Segments {
		for _, step := range r.Segments[i].Steps {
			if step.Name != "" && step.Name != "-" && step.Distance > bestDistance {
				bestName = step.Name
				bestDistance = step.Distance
			}
		}
	}

	if bestName != "" {
		return "Via " + bestName
	}
	return fmt.Sprintf("Route %d", position)
}

// estimateCongestion tags a route with a coarse traffic-density level
// based on the departure hour. Morning and evening rush hours are high,
// night hours are low, everything else is medium.
func estimateCongestion(departure time.Time) routing.CongestionLevel {
	if departure.IsZero() {
		return routing.CongestionMedium
	}

	hour := departure.Hour()
	switch {
	case hour >= 7 && hour <= 9:
		return routing.CongestionHigh
	case hour >= 17 && hour <= 20:
		return routing.CongestionHigh
	case hour >= 22 || hour <= 5:
		return routing.CongestionLow
	default:
		return routing.CongestionMedium
	}
}

// handleErrorResponse maps ORS error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var orsErr orsErrorResponse
	if err := json.Unmarshal(body, &orsErr); err != nil {
		return &routing.Error{
			Source:  SourceName,
			Code:    fmt.Sprintf("HTTP_%d", statusCode),
			Message: fmt.Sprintf("directions provider returned status %d", statusCode),
			Err:     routing.ErrProviderUnavailable,
		}
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return &routing.Error{
			Source:  SourceName,
			Code:    "RATE_LIMIT",
			Message: "API rate limit exceeded, please try again later",
			Err:     routing.ErrRateLimitExceeded,
		}
	case http.StatusForbidden:
		return &routing.Error{
			Source:  SourceName,
			Code:    "FORBIDDEN",
			Message: "API access denied - check API key configuration",
			Err:     routing.ErrProviderUnavailable,
		}
	case http.StatusNotFound:
		return &routing.Error{
			Source:  SourceName,
			Code:    "NO_ROUTE",
			Message: "no route found between the given points",
			Err:     routing.ErrNoRoutesAvailable,
		}
	case http.StatusBadRequest:
		switch orsErr.Error.Code {
		case orsErrorCodeAltRejected:
			return &routing.Error{
				Source:  SourceName,
				Code:    "ALTERNATIVES_REJECTED",
				Message: orsErr.Error.Message,
				Err:     routing.ErrProviderUnavailable,
			}
		case orsErrorCodeNotFound:
			return &routing.Error{
				Source:  SourceName,
				Code:    "NO_ROUTE",
				Message: orsErr.Error.Message,
				Err:     routing.ErrNoRoutesAvailable,
			}
		case orsErrorCodeInvalidParam:
			return &routing.Error{
				Source:  SourceName,
				Code:    "INVALID_PARAMETER",
				Message: orsErr.Error.Message,
				Err:     routing.ErrInvalidCoordinates,
			}
		default:
			return &routing.Error{
				Source:  SourceName,
				Code:    "BAD_REQUEST",
				Message: orsErr.Error.Message,
				Err:     routing.ErrInvalidCoordinates,
			}
		}
	default:
		if statusCode >= 500 {
			return &routing.Error{
				Source:  SourceName,
				Code:    fmt.Sprintf("SERVER_%d", statusCode),
				Message: "directions provider is temporarily unavailable",
				Err:     routing.ErrProviderUnavailable,
			}
		}
		return &routing.Error{
			Source:  SourceName,
			Code:    fmt.Sprintf("HTTP_%d", statusCode),
			Message: orsErr.Error.Message,
			Err:     routing.ErrProviderUnavailable,
		}
	}
}

// retryWithoutAlternatives reports whether the failed attempt should be
// repeated once without the alternatives request option.
func retryWithoutAlternatives(err error) bool {
	var routingErr *routing.Error
	if errors.As(err, &routingErr) {
		return routingErr.Code == "ALTERNATIVES_REJECTED" || routingErr.Code == "TIMEOUT"
	}
	return false
}

// isTimeout reports whether the error represents a timed-out call.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) recordSuccess() {
	if c.registry != nil {
		c.registry.RecordSuccess(SourceName)
	}
}

func (c *Client) recordFailure(err error) {
	if c.registry != nil {
		c.registry.RecordFailure(SourceName, err)
	}
}
