// Package polyline implements the standard encoded polyline format:
// delta-encoded coordinates packed as base64-ish varints, 5 significant
// bits per character with 0x20 as the continuation bit, at 1e-5 precision.
package polyline

import (
	"fmt"

	"github.com/rideline/navigator/internal/lib/geo"
)

const precision = 1e5

// MalformedError reports an encoded string that ends in the middle of a
// varint. Offset is the byte position where decoding stopped.
type MalformedError struct {
	Offset int
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed polyline: unterminated varint at byte %d", e.Offset)
}

// Decode converts an encoded polyline string into a coordinate sequence.
// An empty string decodes to an empty sequence. The scan is bounded by
// the string length; a truncated trailing varint returns MalformedError.
func Decode(encoded string) ([]geo.Coordinate, error) {
	points := make([]geo.Coordinate, 0, len(encoded)/4)
	var lat, lng int64

	index := 0
	for index < len(encoded) {
		dlat, next, err := decodeVarint(encoded, index)
		if err != nil {
			return nil, err
		}
		lat += dlat

		dlng, next, err := decodeVarint(encoded, next)
		if err != nil {
			return nil, err
		}
		lng += dlng
		index = next

		points = append(points, geo.Coordinate{
			Latitude:  float64(lat) / precision,
			Longitude: float64(lng) / precision,
		})
	}

	return points, nil
}

// decodeVarint reads one signed delta starting at index and returns the
// value along with the index of the next unread byte.
func decodeVarint(encoded string, index int) (int64, int, error) {
	var result int64
	var shift uint
	start := index

	for {
		if index >= len(encoded) {
			return 0, 0, &MalformedError{Offset: start}
		}
		b := int64(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	// Low bit carries the sign: two's-complement style unzigzag
	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// Encode converts a coordinate sequence into the encoded polyline form.
// Coordinates are rounded to 1e-5 degrees, the format's resolution.
func Encode(points []geo.Coordinate) string {
	buf := make([]byte, 0, len(points)*8)
	var prevLat, prevLng int64

	for _, p := range points {
		lat := round(p.Latitude * precision)
		lng := round(p.Longitude * precision)
		buf = encodeVarint(buf, lat-prevLat)
		buf = encodeVarint(buf, lng-prevLng)
		prevLat, prevLng = lat, lng
	}

	return string(buf)
}

func encodeVarint(buf []byte, v int64) []byte {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		buf = append(buf, byte((0x20|(u&0x1f))+63))
		u >>= 5
	}
	return append(buf, byte(u+63))
}

func round(v float64) int64 {
	if v < 0 {
		return int64(v - 0.5)
	}
	return int64(v + 0.5)
}
