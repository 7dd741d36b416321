// Package polyline implements Google's encoded polyline algorithm, the
// geometry format returned by the OpenRouteService directions API.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import "math"

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Decode decodes a polyline-encoded string into (lat, lng) coordinates,
// preserving traversal order. Uses precision 5 (the standard ORS format).
func Decode(encoded string) []Coordinate {
	if encoded == "" {
		return nil
	}

	var coords []Coordinate
	index := 0
	lat := 0
	lng := 0

	for index < len(encoded) {
		latDelta, next := decodeValue(encoded, index)
		index = next
		lat += latDelta

		lngDelta, next := decodeValue(encoded, index)
		index = next
		lng += lngDelta

		coords = append(coords, Coordinate{
			Lat: float64(lat) / 1e5,
			Lng: float64(lng) / 1e5,
		})
	}

	return coords
}

// decodeValue decodes a single delta value starting at index.
// Returns the decoded delta and the new index position.
func decodeValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	// Two's complement for negative deltas.
	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode encodes coordinates into a polyline string at precision 5.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(coords)*4)
	prevLat := 0
	prevLng := 0

	for _, c := range coords {
		lat := int(math.Round(c.Lat * 1e5))
		lng := int(math.Round(c.Lng * 1e5))

		encoded = appendValue(encoded, lat-prevLat)
		encoded = appendValue(encoded, lng-prevLng)

		prevLat = lat
		prevLng = lng
	}

	return string(encoded)
}

// appendValue appends one encoded delta value.
func appendValue(dst []byte, value int) []byte {
	v := value << 1
	if value < 0 {
		v = ^v
	}

	for v >= 0x20 {
		dst = append(dst, byte((0x20|(v&0x1f))+63))
		v >>= 5
	}
	return append(dst, byte(v+63))
}
