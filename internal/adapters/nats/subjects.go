package natsadapter

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects carried by the ITINERARIES stream.
const (
	StreamName              = "ITINERARIES"
	SubjectRawPrefix        = "itinerary.raw."
	SubjectNormalizedPrefix = "itinerary.normalized."
	SubjectRawAll           = SubjectRawPrefix + ">"
	SubjectNormalizedAll    = SubjectNormalizedPrefix + ">"

	// DurableNormalizer is the consumer name shared by normalizer workers.
	DurableNormalizer = "itinerary-normalizer"
)

func streamConfig() nats.StreamConfig {
	return nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectRawAll, SubjectNormalizedAll},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
}

// RawSubject returns the subject a raw itinerary with the given ID is published on.
func RawSubject(id string) string {
	return SubjectRawPrefix + subjectToken(id)
}

// NormalizedSubject returns the subject a normalized itinerary is published on.
func NormalizedSubject(id string) string {
	return SubjectNormalizedPrefix + subjectToken(id)
}

// subjectToken makes s usable as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "anonymous"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

func connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("tripshape"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return connect(url)
}
