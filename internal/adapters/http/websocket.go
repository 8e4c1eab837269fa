package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/tripshape/internal/adapters/nats"
	"github.com/samirrijal/tripshape/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe.
type wsMessage struct {
	Action      string `json:"action"`       // "subscribe" | "unsubscribe"
	ItineraryID string `json:"itinerary_id"` // "" = every itinerary
}

// wsSubject returns the NATS subject a client request maps to.
func wsSubject(m wsMessage) string {
	if m.ItineraryID == "" {
		return natsadapter.SubjectNormalizedAll
	}
	return natsadapter.NormalizedSubject(m.ItineraryID)
}

type unsubscriber interface {
	Unsubscribe() error
}

// subscriptionSet tracks one client's subjects. The catch-all subject and
// per-itinerary subjects are mutually exclusive so no message is relayed twice.
type subscriptionSet struct {
	subscribe func(subject string) (unsubscriber, error)
	subs      map[string]unsubscriber
}

func newSubscriptionSet(subscribe func(subject string) (unsubscriber, error)) *subscriptionSet {
	return &subscriptionSet{subscribe: subscribe, subs: make(map[string]unsubscriber)}
}

// add subscribes to subject and returns the subjects it replaced.
// added is false when the subject was already active.
func (s *subscriptionSet) add(subject string) (added bool, dropped []string, err error) {
	if _, exists := s.subs[subject]; exists {
		return false, nil, nil
	}
	sub, err := s.subscribe(subject)
	if err != nil {
		return false, nil, err
	}

	catchAll := subject == natsadapter.SubjectNormalizedAll
	for existing := range s.subs {
		if catchAll || existing == natsadapter.SubjectNormalizedAll {
			s.remove(existing)
			dropped = append(dropped, existing)
		}
	}
	s.subs[subject] = sub
	return true, dropped, nil
}

// remove unsubscribes from subject and reports whether it was active.
func (s *subscriptionSet) remove(subject string) bool {
	sub, exists := s.subs[subject]
	if !exists {
		return false
	}
	_ = sub.Unsubscribe()
	delete(s.subs, subject)
	return true
}

func (s *subscriptionSet) closeAll() {
	for subject := range s.subs {
		s.remove(subject)
	}
}

// WebSocketHandler relays normalized itineraries published on NATS to
// connected clients. Every client starts subscribed to all itineraries.
// {"action":"subscribe","itinerary_id":"..."} narrows that to the given
// itineraries, a subscribe without an id widens it back, and "unsubscribe"
// drops a subject.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		if nc == nil {
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"event stream not configured"}`))
			return
		}

		var mu sync.Mutex

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		subs := newSubscriptionSet(func(subject string) (unsubscriber, error) {
			return nc.Subscribe(subject, relay)
		})
		defer subs.closeAll()

		if _, _, err := subs.add(natsadapter.SubjectNormalizedAll); err != nil {
			slog.Error("ws default subscribe", "error", err)
			return
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			subject := wsSubject(m)

			switch m.Action {
			case "subscribe":
				added, dropped, err := subs.add(subject)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				if !added {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				_ = writeJSON(map[string]interface{}{"status": "subscribed", "subject": subject, "replaced": dropped})

			case "unsubscribe":
				if subs.remove(subject) {
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
