package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/tripshape/internal/core/domain"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

// ItineraryRepository persists raw itineraries alongside their normalized form.
type ItineraryRepository interface {
	// Save upserts by n.ID and returns the stored ID (generated when n.ID is empty).
	Save(ctx context.Context, raw *domain.Itinerary, n *domain.NormalizedItinerary) (string, error)
	GetByID(ctx context.Context, id string) (*domain.NormalizedItinerary, error)
	GetRaw(ctx context.Context, id string) (*domain.Itinerary, error)
	List(ctx context.Context, offset, limit int) ([]domain.ItinerarySummary, error)
	ListIDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}
