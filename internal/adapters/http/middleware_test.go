package http

import (
	"errors"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestETagMatches(t *testing.T) {
	etag := `W/"abc"`
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`W/"abc"`, true},
		{`"abc"`, true},
		{`"zzz", W/"abc"`, true},
		{"*", true},
		{`"zzz"`, false},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, etag); got != tt.want {
			t.Errorf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestPaginationLinks(t *testing.T) {
	tests := []struct {
		name string
		p    Pagination
		want []string
	}{
		{
			name: "first page",
			p:    Pagination{Offset: 0, Limit: 10, Total: 25},
			want: []string{`offset=0&limit=10>; rel="first"`, `offset=10&limit=10>; rel="next"`, `offset=15&limit=10>; rel="last"`},
		},
		{
			name: "middle page",
			p:    Pagination{Offset: 5, Limit: 10, Total: 25},
			want: []string{`offset=0&limit=10>; rel="prev"`, `offset=15&limit=10>; rel="next"`},
		},
		{
			name: "single page",
			p:    Pagination{Offset: 0, Limit: 50, Total: 3},
			want: []string{`offset=0&limit=50>; rel="last"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined := strings.Join(tt.p.links("/v1/itineraries"), ", ")
			for _, w := range tt.want {
				if !strings.Contains(joined, w) {
					t.Errorf("expected %q in %s", w, joined)
				}
			}
			if tt.p.Offset+tt.p.Limit >= tt.p.Total && strings.Contains(joined, `rel="next"`) {
				t.Errorf("unexpected next link in %s", joined)
			}
		})
	}
}

func TestCacheControlFor(t *testing.T) {
	tests := map[string]string{
		"/v1/health":          "public, max-age=10",
		"/metrics":            "no-cache",
		"/v1/polyline/decode": "public, max-age=86400",
		"/v1/itineraries":     "private, max-age=0",
		"/v1/itineraries/abc": "private, max-age=60",
		"/docs":               "",
	}
	for path, want := range tests {
		if got := cacheControlFor(path); got != want {
			t.Errorf("cacheControlFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestWSSubject(t *testing.T) {
	if got := wsSubject(wsMessage{}); got != "itinerary.normalized.>" {
		t.Errorf("unexpected default subject %s", got)
	}
	if got := wsSubject(wsMessage{ItineraryID: "abc"}); got != "itinerary.normalized.abc" {
		t.Errorf("unexpected subject %s", got)
	}
}

func TestTracingMiddleware_SpanOutlivesRequest(t *testing.T) {
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/v1/polyline/decode", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	first := httptest.NewRequest("GET", "/v1/polyline/decode?encoded=aaaaaaaa", nil)
	first.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	if _, err := app.Test(first, -1); err != nil {
		t.Fatal(err)
	}
	// Same length so a reused buffer would overwrite the first target in place.
	if _, err := app.Test(httptest.NewRequest("GET", "/v1/polyline/decode?encoded=zzzzzzzz", nil), -1); err != nil {
		t.Fatal(err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	var target string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "http.target" {
			target = kv.Value.AsString()
		}
	}
	if target != "/v1/polyline/decode?encoded=aaaaaaaa" {
		t.Errorf("http.target = %q", target)
	}
	if got := spans[0].Parent().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("parent trace id = %s", got)
	}
	if spans[0].Name() != "GET /v1/polyline/decode" {
		t.Errorf("span name = %q", spans[0].Name())
	}
}

type fakeSub struct {
	subject string
	active  map[string]bool
}

func (f *fakeSub) Unsubscribe() error {
	delete(f.active, f.subject)
	return nil
}

func newFakeSubscriptionSet() (*subscriptionSet, map[string]bool) {
	active := make(map[string]bool)
	set := newSubscriptionSet(func(subject string) (unsubscriber, error) {
		if subject == "itinerary.normalized.broken" {
			return nil, errors.New("nats: invalid subject")
		}
		active[subject] = true
		return &fakeSub{subject: subject, active: active}, nil
	})
	return set, active
}

func activeSubjects(active map[string]bool) []string {
	var out []string
	for s := range active {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func TestSubscriptionSet_NarrowingDropsCatchAll(t *testing.T) {
	set, active := newFakeSubscriptionSet()

	if added, _, err := set.add(wsSubject(wsMessage{})); !added || err != nil {
		t.Fatalf("default subscribe: added=%v err=%v", added, err)
	}

	added, dropped, err := set.add(wsSubject(wsMessage{ItineraryID: "abc"}))
	if !added || err != nil {
		t.Fatalf("narrow: added=%v err=%v", added, err)
	}
	if !slices.Equal(dropped, []string{"itinerary.normalized.>"}) {
		t.Errorf("dropped = %v", dropped)
	}

	if _, dropped, _ := set.add(wsSubject(wsMessage{ItineraryID: "def"})); len(dropped) != 0 {
		t.Errorf("second id dropped %v", dropped)
	}

	want := []string{"itinerary.normalized.abc", "itinerary.normalized.def"}
	if got := activeSubjects(active); !slices.Equal(got, want) {
		t.Errorf("active = %v, want %v", got, want)
	}
}

func TestSubscriptionSet_WideningDropsSpecific(t *testing.T) {
	set, active := newFakeSubscriptionSet()
	set.add("itinerary.normalized.abc")
	set.add("itinerary.normalized.def")

	_, dropped, _ := set.add("itinerary.normalized.>")
	slices.Sort(dropped)
	if !slices.Equal(dropped, []string{"itinerary.normalized.abc", "itinerary.normalized.def"}) {
		t.Errorf("dropped = %v", dropped)
	}
	if got := activeSubjects(active); !slices.Equal(got, []string{"itinerary.normalized.>"}) {
		t.Errorf("active = %v", got)
	}
}

func TestSubscriptionSet_DuplicateRemoveAndFailure(t *testing.T) {
	set, active := newFakeSubscriptionSet()
	set.add("itinerary.normalized.>")

	if added, _, _ := set.add("itinerary.normalized.>"); added {
		t.Error("expected duplicate subscribe to be a no-op")
	}

	// A failed subscribe leaves the existing subscription in place.
	if _, _, err := set.add("itinerary.normalized.broken"); err == nil {
		t.Error("expected subscribe error")
	}
	if !active["itinerary.normalized.>"] {
		t.Error("catch-all dropped after failed subscribe")
	}

	if !set.remove("itinerary.normalized.>") || set.remove("itinerary.normalized.>") {
		t.Error("remove should succeed once")
	}

	set.add("itinerary.normalized.abc")
	set.closeAll()
	if len(active) != 0 {
		t.Errorf("closeAll left %v", activeSubjects(active))
	}
}
