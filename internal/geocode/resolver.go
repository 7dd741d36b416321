// Package geocode resolves user-supplied locations into coordinates.
// A location may be a raw coordinate, a "lat,lng" text pair, or free text
// to be geocoded through the provider's Pelias-compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smarttime/smarttime/internal/provider/resilience"
	"github.com/smarttime/smarttime/internal/routing"
)

// ProviderName identifies the geocoding provider.
const ProviderName = "geocoder"

// DefaultTimeout is the default geocoding request timeout.
const DefaultTimeout = 10 * time.Second

// ErrNotResolvable indicates the input could not be parsed as
// coordinates nor geocoded.
var ErrNotResolvable = errors.New("location not resolvable")

// Input is a location to resolve: either a raw coordinate or text.
type Input struct {
	Coord *routing.Coordinate
	Text  string
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ResolverConfig holds configuration for the location resolver.
type ResolverConfig struct {
	// APIKey is the geocoding API key. When empty, free-text inputs
	// resolve to deterministic demo coordinates instead of failing.
	APIKey string

	// BaseURL is the geocoding API base URL.
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for resolver operations.
	Logger zerolog.Logger
}

// Resolver resolves locations to coordinates.
type Resolver struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	registry   *resilience.Registry
	logger     zerolog.Logger
}

// NewResolver creates a new location resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		client := resilience.NewClient(clientCfg)
		if cfg.Registry != nil {
			cfg.Registry.Register(ProviderName, client)
		}
		httpClient = client
	}

	return &Resolver{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		registry:   cfg.Registry,
		logger:     cfg.Logger,
	}
}

// Resolve turns an input into a validated coordinate. Resolution order:
// raw coordinate, "lat,lng" text pair, free-text geocoding. Fails with
// ErrNotResolvable when none succeed.
func (r *Resolver) Resolve(ctx context.Context, in Input) (routing.Coordinate, error) {
	if in.Coord != nil {
		if err := in.Coord.Validate(); err != nil {
			return routing.Coordinate{}, fmt.Errorf("%w: %v", ErrNotResolvable, err)
		}
		return *in.Coord, nil
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return routing.Coordinate{}, fmt.Errorf("%w: empty location", ErrNotResolvable)
	}

	if coord, ok := parseCoordinateText(text); ok {
		if err := coord.Validate(); err != nil {
			return routing.Coordinate{}, fmt.Errorf("%w: %v", ErrNotResolvable, err)
		}
		return coord, nil
	}

	return r.geocode(ctx, text)
}

// parseCoordinateText parses a "lat,lng" pair.
func parseCoordinateText(text string) (routing.Coordinate, bool) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return routing.Coordinate{}, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return routing.Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return routing.Coordinate{}, false
	}

	return routing.Coordinate{Lat: lat, Lng: lng}, true
}

// peliasResponse is the subset of the geocoding response we consume.
type peliasResponse struct {
	Features []struct {
		Geometry struct {
			// Coordinates are in [lng, lat] axis order (GeoJSON).
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// geocode resolves free text through the provider search API. Without an
// API key it falls back to deterministic demo coordinates so the system
// stays usable offline.
func (r *Resolver) geocode(ctx context.Context, text string) (routing.Coordinate, error) {
	if r.apiKey == "" {
		coord := demoCoordinate(text)
		r.logger.Debug().
			Str("text", text).
			Float64("lat", coord.Lat).
			Float64("lng", coord.Lng).
			Msg("resolved location with demo geocoder")
		return coord, nil
	}

	query := url.Values{}
	query.Set("api_key", r.apiKey)
	query.Set("text", text)
	query.Set("size", "1")

	endpoint := fmt.Sprintf("%s/geocode/search?%s", r.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.recordFailure(err)
		return routing.Coordinate{}, fmt.Errorf("%w: geocoding request failed", ErrNotResolvable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.recordFailure(err)
		return routing.Coordinate{}, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.recordFailure(fmt.Errorf("geocoder status %d", resp.StatusCode))
		return routing.Coordinate{}, fmt.Errorf("%w: geocoder returned status %d", ErrNotResolvable, resp.StatusCode)
	}

	var pelias peliasResponse
	if err := json.Unmarshal(body, &pelias); err != nil {
		r.recordFailure(err)
		return routing.Coordinate{}, fmt.Errorf("decoding response: %w", err)
	}

	if len(pelias.Features) == 0 || len(pelias.Features[0].Geometry.Coordinates) < 2 {
		r.recordSuccess()
		return routing.Coordinate{}, fmt.Errorf("%w: no match for %q", ErrNotResolvable, text)
	}

	// Flip GeoJSON [lng, lat] into (lat, lng).
	coords := pelias.Features[0].Geometry.Coordinates
	coord := routing.Coordinate{Lat: coords[1], Lng: coords[0]}
	if err := coord.Validate(); err != nil {
		return routing.Coordinate{}, fmt.Errorf("%w: %v", ErrNotResolvable, err)
	}

	r.recordSuccess()
	r.logger.Debug().
		Str("text", text).
		Str("label", pelias.Features[0].Properties.Label).
		Msg("geocoded location")

	return coord, nil
}

// demoCoordinate derives a stable coordinate from the input text,
// anchored near Mexico City. The same text always resolves to the same
// point, which keeps demo-mode results reproducible.
func demoCoordinate(text string) routing.Coordinate {
	h := hashText(text)
	return routing.Coordinate{
		Lat: 19.4326 + float64(h%20)*0.001,
		Lng: -99.1332 + float64((h>>2)%20)*0.001,
	}
}

// hashText computes a non-negative 32-bit string hash.
func hashText(text string) int32 {
	var h int32
	for _, c := range text {
		h = h<<5 - h + int32(c)
	}
	if h < 0 {
		return -h
	}
	return h
}

func (r *Resolver) recordSuccess() {
	if r.registry != nil {
		r.registry.RecordSuccess(ProviderName)
	}
}

func (r *Resolver) recordFailure(err error) {
	if r.registry != nil {
		r.registry.RecordFailure(ProviderName, err)
	}
}
