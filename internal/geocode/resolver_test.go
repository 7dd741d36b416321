package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/smarttime/smarttime/internal/routing"
)

func newTestResolver(t *testing.T, apiKey, baseURL string) *Resolver {
	t.Helper()
	return NewResolver(ResolverConfig{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
		Logger:     zerolog.Nop(),
	})
}

func TestResolve_CoordinatePassthrough(t *testing.T) {
	r := newTestResolver(t, "", "")

	want := routing.Coordinate{Lat: 19.4326, Lng: -99.1332}
	got, err := r.Resolve(context.Background(), Input{Coord: &want})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestResolve_InvalidCoordinate(t *testing.T) {
	r := newTestResolver(t, "", "")

	bad := routing.Coordinate{Lat: 95.0, Lng: 0}
	_, err := r.Resolve(context.Background(), Input{Coord: &bad})
	if !errors.Is(err, ErrNotResolvable) {
		t.Errorf("expected ErrNotResolvable, got %v", err)
	}
}

func TestResolve_CoordinateText(t *testing.T) {
	r := newTestResolver(t, "", "")

	tests := []struct {
		text string
		want routing.Coordinate
	}{
		{"19.4326,-99.1332", routing.Coordinate{Lat: 19.4326, Lng: -99.1332}},
		{" 19.4326 , -99.1332 ", routing.Coordinate{Lat: 19.4326, Lng: -99.1332}},
		{"-33.8688,151.2093", routing.Coordinate{Lat: -33.8688, Lng: 151.2093}},
	}

	for _, tt := range tests {
		got, err := r.Resolve(context.Background(), Input{Text: tt.text})
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
	}
}

func TestResolve_CoordinateTextOutOfRange(t *testing.T) {
	r := newTestResolver(t, "", "")

	_, err := r.Resolve(context.Background(), Input{Text: "91.0,0.0"})
	if !errors.Is(err, ErrNotResolvable) {
		t.Errorf("expected ErrNotResolvable, got %v", err)
	}
}

func TestResolve_EmptyText(t *testing.T) {
	r := newTestResolver(t, "", "")

	_, err := r.Resolve(context.Background(), Input{Text: "   "})
	if !errors.Is(err, ErrNotResolvable) {
		t.Errorf("expected ErrNotResolvable, got %v", err)
	}
}

func TestResolve_DemoModeDeterministic(t *testing.T) {
	r := newTestResolver(t, "", "")

	first, err := r.Resolve(context.Background(), Input{Text: "Zócalo"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	second, err := r.Resolve(context.Background(), Input{Text: "Zócalo"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if first != second {
		t.Errorf("demo resolution not deterministic: %+v vs %+v", first, second)
	}
	if err := first.Validate(); err != nil {
		t.Errorf("demo coordinate invalid: %v", err)
	}
	if first.Lat < 19.4326 || first.Lat > 19.4326+0.020 {
		t.Errorf("demo latitude %f outside anchor band", first.Lat)
	}
	if first.Lng < -99.1332 || first.Lng > -99.1332+0.020 {
		t.Errorf("demo longitude %f outside anchor band", first.Lng)
	}
}

func TestResolve_DemoModeVariesByText(t *testing.T) {
	r := newTestResolver(t, "", "")

	a, err := r.Resolve(context.Background(), Input{Text: "Polanco"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	b, err := r.Resolve(context.Background(), Input{Text: "Coyoacán"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if a == b {
		t.Errorf("expected distinct demo coordinates, both %+v", a)
	}
}

func TestResolve_Geocoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("text"); got != "Angel de la Independencia" {
			t.Errorf("unexpected text query %q", got)
		}
		if got := r.URL.Query().Get("size"); got != "1" {
			t.Errorf("unexpected size query %q", got)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("unexpected api_key query %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"features": [{
				"geometry": {"coordinates": [-99.1676, 19.4270]},
				"properties": {"label": "El Ángel, Mexico City"}
			}]
		}`))
	}))
	defer server.Close()

	r := newTestResolver(t, "test-key", server.URL)

	got, err := r.Resolve(context.Background(), Input{Text: "Angel de la Independencia"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	// GeoJSON [lng, lat] must come back flipped.
	want := routing.Coordinate{Lat: 19.4270, Lng: -99.1676}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestResolve_GeocodingNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"features": []}`))
	}))
	defer server.Close()

	r := newTestResolver(t, "test-key", server.URL)

	_, err := r.Resolve(context.Background(), Input{Text: "nowhere at all"})
	if !errors.Is(err, ErrNotResolvable) {
		t.Errorf("expected ErrNotResolvable, got %v", err)
	}
}

func TestResolve_GeocodingServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := newTestResolver(t, "test-key", server.URL)

	_, err := r.Resolve(context.Background(), Input{Text: "Centro Histórico"})
	if !errors.Is(err, ErrNotResolvable) {
		t.Errorf("expected ErrNotResolvable, got %v", err)
	}
}
