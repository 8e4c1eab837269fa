package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/tripshape/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRawItineraries delivers raw itineraries to handler through a
// durable queue consumer, so several workers share the load. Messages that
// fail to decode are terminated; handler errors are redelivered up to 3 times.
func (s *Subscriber) SubscribeRawItineraries(ctx context.Context, handler func(ctx context.Context, it *domain.Itinerary) error) error {
	sub, err := s.js.QueueSubscribe(SubjectRawAll, DurableNormalizer, func(msg *nats.Msg) {
		var it domain.Itinerary
		if err := json.Unmarshal(msg.Data, &it); err != nil {
			slog.Warn("drop undecodable itinerary", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &it); err != nil {
			slog.Error("handle raw itinerary", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(DurableNormalizer),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
