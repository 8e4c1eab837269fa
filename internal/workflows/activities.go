package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/tripshape/internal/core/domain"
	"github.com/samirrijal/tripshape/internal/core/usecases"
)

// Renormalizer is the part of usecases.ItineraryService the activities use.
type Renormalizer interface {
	ListIDs(ctx context.Context) ([]string, error)
	Renormalize(ctx context.Context, id string) (*domain.NormalizedItinerary, error)
}

// Activities holds the activity implementations for RenormalizeWorkflow.
type Activities struct {
	Itineraries Renormalizer
}

// RenormalizeOutcome summarizes one recomputed itinerary.
type RenormalizeOutcome struct {
	ID        string
	Legs      int
	HasBounds bool
	Mode      string
}

// ListItineraryIDs returns the IDs of every stored itinerary.
func (a *Activities) ListItineraryIDs(ctx context.Context) ([]string, error) {
	ids, err := a.Itineraries.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list itineraries: %w", err)
	}
	return ids, nil
}

// RenormalizeItinerary recomputes one stored itinerary. A missing itinerary
// is not retried.
func (a *Activities) RenormalizeItinerary(ctx context.Context, id string) (RenormalizeOutcome, error) {
	n, err := a.Itineraries.Renormalize(ctx, id)
	if errors.Is(err, usecases.ErrNotFound) {
		return RenormalizeOutcome{}, temporal.NewNonRetryableApplicationError(
			"itinerary "+id+" no longer exists", "NotFound", err)
	}
	if err != nil {
		return RenormalizeOutcome{}, fmt.Errorf("renormalize %s: %w", id, err)
	}

	activity.GetLogger(ctx).Debug("itinerary renormalized", "id", id, "legs", len(n.Legs))
	return RenormalizeOutcome{
		ID:        id,
		Legs:      len(n.Legs),
		HasBounds: n.BoundingBox != nil,
		Mode:      n.GeometryMode,
	}, nil
}
