package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/tripshape/internal/adapters/http"
	"github.com/samirrijal/tripshape/internal/adapters/postgres"
	"github.com/samirrijal/tripshape/internal/core/domain"
	"github.com/samirrijal/tripshape/internal/core/ports"
	"github.com/samirrijal/tripshape/internal/core/usecases"
)

// ---- Mocks ----

type mockItineraryRepo struct {
	saveFn    func(ctx context.Context, raw *domain.Itinerary, n *domain.NormalizedItinerary) (string, error)
	getByIDFn func(ctx context.Context, id string) (*domain.NormalizedItinerary, error)
	listFn    func(ctx context.Context, offset, limit int) ([]domain.ItinerarySummary, error)
	countFn   func(ctx context.Context) (int, error)
}

func (m *mockItineraryRepo) Save(ctx context.Context, raw *domain.Itinerary, n *domain.NormalizedItinerary) (string, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, raw, n)
	}
	return "new-id", nil
}
func (m *mockItineraryRepo) GetByID(ctx context.Context, id string) (*domain.NormalizedItinerary, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, ports.ErrNotFound
}
func (m *mockItineraryRepo) GetRaw(ctx context.Context, id string) (*domain.Itinerary, error) {
	return nil, ports.ErrNotFound
}
func (m *mockItineraryRepo) List(ctx context.Context, offset, limit int) ([]domain.ItinerarySummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, nil
}
func (m *mockItineraryRepo) ListIDs(ctx context.Context) ([]string, error) { return nil, nil }
func (m *mockItineraryRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type mockPinger struct{ err error }

func (p mockPinger) Ping(ctx context.Context) error { return p.err }

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps, handler.RouterOptions{SpecPath: "../../../api/openapi.yaml"})
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Itineraries: usecases.NewItineraryService(&mockItineraryRepo{}, nil, nil, usecases.ItineraryOptions{}),
		Polylines:   usecases.NewPolylineService(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func withRepo(repo ports.ItineraryRepository) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		d.Itineraries = usecases.NewItineraryService(repo, nil, nil, usecases.ItineraryOptions{})
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

const knownPolyline = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

const walkBusBusJSON = `{
  "duration": 720,
  "legs": [
    {"mode": "WALK", "duration": 120, "distance": 150, "legGeometry": {"points": "_p~iF~ps|U"}},
    {"mode": "BUS", "route": "12", "transitLeg": true, "duration": 300, "distance": 1000,
     "legGeometry": {"points": "_ulLnnqC"}},
    {"mode": "BUS", "route": "12", "transitLeg": true, "duration": 300, "distance": 1000,
     "legGeometry": {"points": "_mqNvxq` + "`" + `@"}}
  ]
}`

// ---- Itinerary handler tests ----

func TestNormalizeItinerary_Success(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/itineraries/normalize", strings.NewReader(walkBusBusJSON))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var n domain.NormalizedItinerary
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		t.Fatal(err)
	}
	if len(n.Legs) != 2 {
		t.Fatalf("expected [WALK, merged BUS], got %d legs", len(n.Legs))
	}
	if n.Legs[0].Mode != "WALK" || n.Legs[1].Mode != "BUS" {
		t.Errorf("unexpected modes %s, %s", n.Legs[0].Mode, n.Legs[1].Mode)
	}
	if n.Legs[1].DurationSeconds != 600 {
		t.Errorf("expected merged duration 600, got %d", n.Legs[1].DurationSeconds)
	}
	if n.BoundingBox == nil {
		t.Error("expected bounding box")
	}
}

func TestNormalizeItinerary_InvalidPayload(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/itineraries/normalize", strings.NewReader(`{"legs":[{"duration":-1}]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var apiErr handler.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "invalid_payload" {
		t.Errorf("expected invalid_payload, got %s", apiErr.Code)
	}
}

func TestNormalizeItinerary_Store(t *testing.T) {
	var savedLegs int
	app := setupApp(makeDeps(withRepo(&mockItineraryRepo{
		saveFn: func(ctx context.Context, raw *domain.Itinerary, n *domain.NormalizedItinerary) (string, error) {
			savedLegs = len(n.Legs)
			return "it-42", nil
		},
	})))

	req := httptest.NewRequest("POST", "/v1/itineraries/normalize?store=true", strings.NewReader(walkBusBusJSON))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/itineraries/it-42" {
		t.Errorf("unexpected Location %q", loc)
	}
	if savedLegs != 2 {
		t.Errorf("expected 2 stored legs, got %d", savedLegs)
	}
}

func TestNormalizeItinerary_StoreWithoutRepository(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Itineraries = usecases.NewItineraryService(nil, nil, nil, usecases.ItineraryOptions{})
	}))

	req := httptest.NewRequest("POST", "/v1/itineraries/normalize?store=true", strings.NewReader(walkBusBusJSON))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var apiErr handler.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "unavailable" {
		t.Errorf("expected code unavailable, got %q", apiErr.Code)
	}
}

func TestNormalizePlan_Success(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"plan": {"from": {"name": "Home"}, "to": {"name": "Work"},
		"itineraries": [` + walkBusBusJSON + `, {"legs": [{"mode": "WALK", "duration": 30}]}]}}`
	req := httptest.NewRequest("POST", "/v1/plans/normalize", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		From        domain.Place                 `json:"from"`
		Itineraries []domain.NormalizedItinerary `json:"itineraries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.From.Name != "Home" {
		t.Errorf("expected from Home, got %s", result.From.Name)
	}
	if len(result.Itineraries) != 2 {
		t.Fatalf("expected 2 itineraries, got %d", len(result.Itineraries))
	}
	if len(result.Itineraries[1].Legs) != 0 || result.Itineraries[1].BoundingBox != nil {
		t.Errorf("expected the short walk to be dropped with no bounding box, got %+v", result.Itineraries[1])
	}
}

func TestListItineraries_Pagination(t *testing.T) {
	app := setupApp(makeDeps(withRepo(&mockItineraryRepo{
		listFn: func(ctx context.Context, offset, limit int) ([]domain.ItinerarySummary, error) {
			return []domain.ItinerarySummary{{ID: "a"}, {ID: "b"}}, nil
		},
		countFn: func(ctx context.Context) (int, error) { return 5, nil },
	})))

	req := httptest.NewRequest("GET", "/v1/itineraries?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("expected Link to contain %s, got %s", rel, link)
		}
	}

	var result struct {
		Data       []domain.ItinerarySummary `json:"data"`
		Pagination handler.Pagination        `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 5 || len(result.Data) != 2 {
		t.Errorf("expected 2 of 5, got %d of %d", len(result.Data), result.Pagination.Total)
	}
}

func TestGetItinerary(t *testing.T) {
	app := setupApp(makeDeps(withRepo(&mockItineraryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NormalizedItinerary, error) {
			switch id {
			case "known":
				return &domain.NormalizedItinerary{ID: "known", Legs: []domain.DisplayLeg{}}, nil
			case "broken":
				return nil, errors.New("connection reset")
			}
			return nil, ports.ErrNotFound
		},
	})))

	tests := []struct {
		path   string
		status int
	}{
		{"/v1/itineraries/known", 200},
		{"/v1/itineraries/missing", 404},
		{"/v1/itineraries/broken", 500},
	}
	for _, tt := range tests {
		resp, _ := app.Test(httptest.NewRequest("GET", tt.path, nil), -1)
		if resp.StatusCode != tt.status {
			t.Errorf("GET %s: expected %d, got %d", tt.path, tt.status, resp.StatusCode)
		}
	}
}

// Non-UUID ids never reach the database and read as missing.
func TestGetItinerary_MalformedID(t *testing.T) {
	app := setupApp(makeDeps(withRepo(postgres.NewItineraryRepo(nil))))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/itineraries/foo", nil), -1)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var apiErr handler.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "not_found" {
		t.Errorf("expected code not_found, got %q", apiErr.Code)
	}

	data := graphQL(t, app, `{ itinerary(id: "foo") { id } }`)
	if data["itinerary"] != nil {
		t.Errorf("expected null itinerary, got %v", data["itinerary"])
	}
}

// ---- Polyline handler tests ----

func TestDecodePolyline(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/polyline/decode?encoded="+url.QueryEscape(knownPolyline), nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Coordinates []domain.Coordinate `json:"coordinates"`
		Count       int                 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 3 || result.Coordinates[2].Lat != 43.252 {
		t.Errorf("unexpected decode result %+v", result)
	}
}

func TestDecodePolyline_Malformed(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/polyline/decode?encoded=_p~iF", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := string(readBody(t, resp.Body))
	if !strings.Contains(body, `"coordinates":[]`) || !strings.Contains(body, `"count":0`) {
		t.Errorf("expected empty coordinates, got %s", body)
	}
}

func TestEncodePolyline(t *testing.T) {
	app := setupApp(makeDeps())

	body := `{"coordinates":[{"lat":38.5,"lon":-120.2},{"lat":40.7,"lon":-120.95},{"lat":43.252,"lon":-126.453}]}`
	req := httptest.NewRequest("POST", "/v1/polyline/encode", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Encoded string `json:"encoded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Encoded != knownPolyline {
		t.Errorf("expected %s, got %s", knownPolyline, result.Encoded)
	}
}

func TestEncodePolyline_OutOfRange(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/polyline/encode", strings.NewReader(`{"coordinates":[{"lat":100,"lon":0}]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPolylineBounds(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/polyline/bounds?encoded="+url.QueryEscape(knownPolyline), nil), -1)
	var result struct {
		BoundingBox *domain.BoundingRect `json:"bounding_box"`
		Bounds      *domain.Bounds       `json:"bounds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.BoundingBox == nil || result.BoundingBox.Width <= 0 || result.BoundingBox.Height <= 0 {
		t.Errorf("expected a non-empty box, got %+v", result.BoundingBox)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/polyline/bounds?encoded=", nil), -1)
	body := string(readBody(t, resp.Body))
	if !strings.Contains(body, `"bounding_box":null`) {
		t.Errorf("expected null bounding box, got %s", body)
	}
}

// ---- Health, caching, docs ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result["geometry_mode"] != "primary" {
		t.Errorf("expected primary geometry mode, got %s", result["geometry_mode"])
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		db     handler.Pinger
		cache  handler.Pinger
		status int
	}{
		{"all ok", mockPinger{}, mockPinger{}, 200},
		{"no cache", mockPinger{}, nil, 200},
		{"db down", mockPinger{err: errors.New("refused")}, mockPinger{}, 503},
		{"no db", nil, nil, 503},
		{"cache down", mockPinger{}, mockPinger{err: errors.New("refused")}, 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(makeDeps(func(d *handler.Dependencies) {
				d.DB = tt.db
				d.Cache = tt.cache
			}))
			resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps())
	path := "/v1/polyline/decode?encoded=" + url.QueryEscape(knownPolyline)

	resp, _ := app.Test(httptest.NewRequest("GET", path, nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=86400" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestDocs(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/docs", nil), -1)
	if resp.StatusCode != 200 {
		t.Errorf("expected 200 for /docs, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if resp.StatusCode != 200 {
		t.Errorf("expected 200 for openapi.yaml, got %d", resp.StatusCode)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws", nil), -1)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func graphQL(t *testing.T, app *fiber.App, query string) map[string]interface{} {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"query": query})
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if errs, ok := result["errors"]; ok {
		t.Fatalf("unexpected graphql errors: %v", errs)
	}
	return result["data"].(map[string]interface{})
}

func TestGraphQL_DecodePolyline(t *testing.T) {
	app := setupApp(makeDeps())

	data := graphQL(t, app, `{ decodePolyline(encoded: "_p~iF~ps|U") { lat lon } }`)
	coords := data["decodePolyline"].([]interface{})
	if len(coords) != 1 {
		t.Fatalf("expected 1 coordinate, got %d", len(coords))
	}
	c := coords[0].(map[string]interface{})
	if c["lat"].(float64) != 38.5 || c["lon"].(float64) != -120.2 {
		t.Errorf("unexpected coordinate %v", c)
	}
}

func TestGraphQL_BoundingBox(t *testing.T) {
	app := setupApp(makeDeps())

	data := graphQL(t, app, `{ empty: boundingBox(encoded: "") { rect { width } } full: boundingBox(encoded: "`+knownPolyline+`") { rect { width height } bounds { minLat } } }`)
	if data["empty"] != nil {
		t.Errorf("expected null for empty polyline, got %v", data["empty"])
	}
	full := data["full"].(map[string]interface{})
	rect := full["rect"].(map[string]interface{})
	if rect["width"].(float64) <= 0 {
		t.Errorf("expected positive width, got %v", rect["width"])
	}
}

func TestGraphQL_Itinerary(t *testing.T) {
	route := "12"
	app := setupApp(makeDeps(withRepo(&mockItineraryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NormalizedItinerary, error) {
			if id != "known" {
				return nil, ports.ErrNotFound
			}
			return &domain.NormalizedItinerary{
				ID: "known",
				Legs: []domain.DisplayLeg{
					{Leg: domain.Leg{Mode: "BUS", Route: &route, DurationSeconds: 600}},
				},
			}, nil
		},
	})))

	data := graphQL(t, app, `{ known: itinerary(id: "known") { id relevantLegs { mode route durationSeconds } boundingBox { width } } missing: itinerary(id: "nope") { id } }`)
	if data["missing"] != nil {
		t.Errorf("expected null for missing itinerary, got %v", data["missing"])
	}
	known := data["known"].(map[string]interface{})
	if known["boundingBox"] != nil {
		t.Errorf("expected null bounding box, got %v", known["boundingBox"])
	}
	legs := known["relevantLegs"].([]interface{})
	if len(legs) != 1 || legs[0].(map[string]interface{})["route"] != "12" {
		t.Errorf("unexpected legs %v", legs)
	}
}
