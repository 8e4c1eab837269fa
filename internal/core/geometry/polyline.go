// Package geometry turns leg polylines into map-ready points and rectangles.
//
// Everything here is a pure function of its arguments: no I/O, no shared
// state, safe for concurrent use.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/samirrijal/tripshape/internal/core/domain"
)

// PolylinePrecision is the fixed-point scale of the encoded polyline format.
const PolylinePrecision = 1e5

// ErrMalformedPolyline is returned by DecodePolylineStrict for unparsable input.
var ErrMalformedPolyline = errors.New("malformed polyline")

// DecodePolyline decodes an encoded polyline into coordinates.
// Empty or malformed input yields no coordinates.
func DecodePolyline(encoded string) []domain.Coordinate {
	coords, err := DecodePolylineStrict(encoded)
	if err != nil {
		return nil
	}
	return coords
}

// DecodePolylineStrict decodes an encoded polyline, reporting why malformed input was rejected.
func DecodePolylineStrict(encoded string) ([]domain.Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	coords := make([]domain.Coordinate, 0, len(encoded)/4)
	var lat, lon int64
	index := 0

	for index < len(encoded) {
		dLat, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		if next >= len(encoded) {
			return nil, fmt.Errorf("%w: latitude at offset %d has no longitude", ErrMalformedPolyline, index)
		}
		dLon, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = next

		lat += dLat
		lon += dLon
		coords = append(coords, domain.Coordinate{
			Lat: float64(lat) / PolylinePrecision,
			Lon: float64(lon) / PolylinePrecision,
		})
	}

	return coords, nil
}

// decodeValue reads one zig-zag encoded delta starting at index.
// It returns the delta and the offset of the next unread byte.
func decodeValue(encoded string, index int) (int64, int, error) {
	var result int64
	shift := uint(0)
	start := index

	for {
		if index >= len(encoded) {
			return 0, 0, fmt.Errorf("%w: truncated value at offset %d", ErrMalformedPolyline, start)
		}
		c := encoded[index]
		if c < 63 || c > 126 {
			return 0, 0, fmt.Errorf("%w: invalid character %q at offset %d", ErrMalformedPolyline, c, index)
		}
		if shift > 60 {
			return 0, 0, fmt.Errorf("%w: value at offset %d overflows", ErrMalformedPolyline, start)
		}
		b := int64(c) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// EncodeCoordinates encodes coordinates into a polyline string.
// Each coordinate is rounded to five decimal places before delta encoding.
func EncodeCoordinates(coords []domain.Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(coords) * 8)

	var prevLat, prevLon int64
	for _, c := range coords {
		lat := int64(math.Round(c.Lat * PolylinePrecision))
		lon := int64(math.Round(c.Lon * PolylinePrecision))

		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return sb.String()
}

func encodeValue(sb *strings.Builder, value int64) {
	v := value << 1
	if value < 0 {
		v = ^v
	}

	for v >= 0x20 {
		sb.WriteByte(byte((v&0x1f)|0x20) + 63)
		v >>= 5
	}
	sb.WriteByte(byte(v) + 63)
}
