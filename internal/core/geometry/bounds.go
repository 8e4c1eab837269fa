package geometry

import (
	"math"

	"github.com/samirrijal/tripshape/internal/core/domain"
)

// GeometryMode selects which polylines of a leg are read.
type GeometryMode int

const (
	// GeometryPrimary reads only Leg.Geometry. For a merged leg this is the
	// first ride's polyline alone, which truncates the drawn path.
	GeometryPrimary GeometryMode = iota
	// GeometryConcatenated reads Leg.Geometry followed by Leg.MergedGeometries.
	GeometryConcatenated
)

// String returns the configuration name of the mode.
func (m GeometryMode) String() string {
	if m == GeometryConcatenated {
		return "concatenated"
	}
	return "primary"
}

// ModeFor returns GeometryConcatenated when concat is set.
func ModeFor(concat bool) GeometryMode {
	if concat {
		return GeometryConcatenated
	}
	return GeometryPrimary
}

// LegPoints decodes the leg's path.
func LegPoints(leg domain.Leg, mode GeometryMode) []domain.Coordinate {
	points := DecodePolyline(leg.Geometry)
	if mode != GeometryConcatenated {
		return points
	}
	for _, g := range leg.MergedGeometries {
		points = append(points, DecodePolyline(g)...)
	}
	return points
}

// BoundingBox returns the smallest projected rectangle enclosing every point
// of every leg, or nil when the legs carry no points at all.
func BoundingBox(legs []domain.Leg, mode GeometryMode) *domain.BoundingRect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	n := 0

	for _, leg := range legs {
		for _, c := range LegPoints(leg, mode) {
			p := Project(c)
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
			n++
		}
	}

	if n == 0 {
		return nil
	}
	return &domain.BoundingRect{
		OriginX: minX,
		OriginY: minY,
		Width:   maxX - minX,
		Height:  maxY - minY,
	}
}

// ItineraryBoundingBox is BoundingBox over all of the itinerary's legs.
func ItineraryBoundingBox(it domain.Itinerary) *domain.BoundingRect {
	return BoundingBox(it.Legs, GeometryPrimary)
}

// RectBounds converts a projected rectangle back to geographic bounds.
func RectBounds(r domain.BoundingRect) domain.Bounds {
	nw := Unproject(domain.MapPoint{X: r.OriginX, Y: r.OriginY})
	se := Unproject(domain.MapPoint{X: r.MaxX(), Y: r.MaxY()})
	return domain.Bounds{
		MinLat: se.Lat,
		MinLon: nw.Lon,
		MaxLat: nw.Lat,
		MaxLon: se.Lon,
	}
}
