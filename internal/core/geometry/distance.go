package geometry

import (
	"math"

	"github.com/samirrijal/tripshape/internal/core/domain"
)

const earthRadiusMeters = 6_371_000

// Haversine returns the great-circle distance in meters between two coordinates.
func Haversine(a, b domain.Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PathLength sums the great-circle distances along an ordered path.
func PathLength(coords []domain.Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += Haversine(coords[i-1], coords[i])
	}
	return total
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
