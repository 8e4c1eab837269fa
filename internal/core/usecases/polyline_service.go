package usecases

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/samirrijal/tripshape/internal/core/domain"
	"github.com/samirrijal/tripshape/internal/core/geometry"
	"github.com/samirrijal/tripshape/internal/pkg/metrics"
	"github.com/samirrijal/tripshape/internal/pkg/telemetry"
)

// MaxPolylineLength bounds the encoded input accepted from clients.
const MaxPolylineLength = 1 << 20

// PolylineService exposes the polyline codec to API clients.
type PolylineService struct{}

// NewPolylineService creates a new PolylineService.
func NewPolylineService() *PolylineService {
	return &PolylineService{}
}

// Decode returns the coordinates of encoded. Malformed input decodes to an
// empty list; it is counted but never reported as an error.
func (s *PolylineService) Decode(ctx context.Context, encoded string) ([]domain.Coordinate, error) {
	if len(encoded) > MaxPolylineLength {
		return nil, fmt.Errorf("polyline too long (max %d bytes)", MaxPolylineLength)
	}

	_, span := otel.Tracer(telemetry.TracerName).Start(ctx, "PolylineService.Decode")
	defer span.End()
	span.SetAttributes(telemetry.AttrPolylineBytes.Int(len(encoded)))

	coords, err := geometry.DecodePolylineStrict(encoded)
	if err != nil {
		metrics.PolylineMalformed.Inc()
		return []domain.Coordinate{}, nil
	}
	if coords == nil {
		coords = []domain.Coordinate{}
	}
	metrics.PolylinePointsDecoded.Add(float64(len(coords)))
	return coords, nil
}

// Encode returns the polyline for coords.
func (s *PolylineService) Encode(ctx context.Context, coords []domain.Coordinate) (string, error) {
	for i, c := range coords {
		if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
			return "", fmt.Errorf("coordinate %d out of range: %v", i, c)
		}
	}
	return geometry.EncodeCoordinates(coords), nil
}

// Bounds returns the projected and geographic bounding boxes of encoded,
// both nil when it holds no points.
func (s *PolylineService) Bounds(ctx context.Context, encoded string) (*domain.BoundingRect, *domain.Bounds, error) {
	if len(encoded) > MaxPolylineLength {
		return nil, nil, fmt.Errorf("polyline too long (max %d bytes)", MaxPolylineLength)
	}

	rect := geometry.BoundingBox([]domain.Leg{{Geometry: encoded}}, geometry.GeometryPrimary)
	if rect == nil {
		return nil, nil, nil
	}
	b := geometry.RectBounds(*rect)
	return rect, &b, nil
}
