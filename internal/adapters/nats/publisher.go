package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/tripshape/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS, enables JetStream and ensures the
// ITINERARIES stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := streamConfig()
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishRawItinerary queues an itinerary on itinerary.raw.<id> for the normalizer workers.
func (p *Publisher) PublishRawItinerary(ctx context.Context, it *domain.Itinerary) error {
	data, err := json.Marshal(it)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(RawSubject(it.ID), data, nats.Context(ctx))
	return err
}

// PublishNormalized announces a stored itinerary on itinerary.normalized.<id>.
func (p *Publisher) PublishNormalized(ctx context.Context, n *domain.NormalizedItinerary) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(NormalizedSubject(n.ID), data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
