package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/tripshape/internal/core/usecases"
)

// Pinger is a backing service the readiness check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Itineraries *usecases.ItineraryService
	Polylines   *usecases.PolylineService
	NATS        *nats.Conn
	DB          Pinger
	Cache       Pinger
}
