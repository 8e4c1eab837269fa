package domain

// Coordinate is a geographic position in degrees (WGS 84).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MapPoint is a position on the projected map plane.
type MapPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingRect is an axis-aligned rectangle on the projected map plane.
// Width and Height are never negative.
type BoundingRect struct {
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// MaxX returns the right edge of the rectangle.
func (r BoundingRect) MaxX() float64 { return r.OriginX + r.Width }

// MaxY returns the bottom edge of the rectangle.
func (r BoundingRect) MaxY() float64 { return r.OriginY + r.Height }

// Contains reports whether p lies inside r, allowing tol units of slack on every edge.
func (r BoundingRect) Contains(p MapPoint, tol float64) bool {
	return p.X >= r.OriginX-tol && p.X <= r.MaxX()+tol &&
		p.Y >= r.OriginY-tol && p.Y <= r.MaxY()+tol
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}
