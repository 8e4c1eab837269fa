package geometry

import (
	"math"

	"github.com/samirrijal/tripshape/internal/core/domain"
)

// WorldSize is the width and height of the whole projected world, in map units.
// It matches the 256-pixel tile pyramid at zoom level 20.
const WorldSize = 256 * (1 << 20)

// MaxLatitude is the Web Mercator latitude limit; input beyond it is clamped.
const MaxLatitude = 85.05112878

// Project maps a coordinate onto the Web Mercator plane.
// X grows eastwards with longitude and Y grows southwards as latitude falls,
// so points from anywhere on the globe compare directly. The antimeridian is
// not handled.
func Project(c domain.Coordinate) domain.MapPoint {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, c.Lat))
	sinLat := math.Sin(lat * math.Pi / 180)

	x := (c.Lon + 180) / 360 * WorldSize
	y := (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * WorldSize

	return domain.MapPoint{X: x, Y: y}
}

// Unproject is the inverse of Project.
func Unproject(p domain.MapPoint) domain.Coordinate {
	lon := p.X/WorldSize*360 - 180
	n := math.Pi - 2*math.Pi*p.Y/WorldSize
	lat := math.Atan(math.Sinh(n)) * 180 / math.Pi

	return domain.Coordinate{Lat: lat, Lon: lon}
}
