package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/tripshape/internal/core/domain"
)

// ErrCacheMiss is returned by CacheService.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// EventPublisher publishes itinerary events to a message broker.
type EventPublisher interface {
	PublishRawItinerary(ctx context.Context, it *domain.Itinerary) error
	PublishNormalized(ctx context.Context, n *domain.NormalizedItinerary) error
}

// EventSubscriber subscribes to itinerary events from a message broker.
type EventSubscriber interface {
	SubscribeRawItineraries(ctx context.Context, handler func(ctx context.Context, it *domain.Itinerary) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
