// Package models provides request and response models for the SmartTime API.
package models

import (
	"encoding/json"
	"errors"
	"time"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a user-supplied location: either a free-text string
// (an address, a place name, or a "lat,lng" pair) or a coordinate
// object.
type Location struct {
	// Text is set when the client sent a JSON string.
	Text string

	// Point is set when the client sent a coordinate object.
	Point *Point
}

// ErrInvalidLocation indicates a location that is neither a string nor
// a coordinate object.
var ErrInvalidLocation = errors.New("location must be a string or a {lat, lng} object")

// UnmarshalJSON accepts either a JSON string or a {lat, lng} object.
// A coordinate object must carry both keys; a partial object is
// rejected rather than zero-filled.
func (l *Location) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		l.Text = text
		l.Point = nil
		return nil
	}

	var point struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &point); err == nil && point.Lat != nil && point.Lng != nil {
		l.Text = ""
		l.Point = &Point{Lat: *point.Lat, Lng: *point.Lng}
		return nil
	}

	return ErrInvalidLocation
}

// MarshalJSON renders the location the way the client sent it.
func (l Location) MarshalJSON() ([]byte, error) {
	if l.Point != nil {
		return json.Marshal(l.Point)
	}
	return json.Marshal(l.Text)
}

// IsZero reports whether the location is empty.
func (l Location) IsZero() bool {
	return l.Text == "" && l.Point == nil
}

// CongestionLevel represents expected traffic congestion.
type CongestionLevel string

const (
	CongestionLow    CongestionLevel = "low"
	CongestionMedium CongestionLevel = "medium"
	CongestionHigh   CongestionLevel = "high"
)

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a helper type for time.Time with RFC3339 JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("timestamp must be an RFC3339 string")
	}
	parsed, err := time.Parse(time.RFC3339, string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// IsZero reports whether the timestamp is unset.
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}
