package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/tripshape/internal/core/domain"
	"github.com/samirrijal/tripshape/internal/core/geometry"
	"github.com/samirrijal/tripshape/internal/core/ports"
	"github.com/samirrijal/tripshape/internal/pkg/metrics"
	"github.com/samirrijal/tripshape/internal/pkg/telemetry"
)

var (
	// ErrNotFound is returned when a stored itinerary does not exist.
	ErrNotFound = errors.New("itinerary not found")
	// ErrNoRepository is returned by Ingest when the service has no storage.
	ErrNoRepository = errors.New("no itinerary repository configured")
)

// ItineraryOptions tunes how itineraries are normalized.
type ItineraryOptions struct {
	// ConcatMergedGeometry makes merged legs carry the path of every ride
	// they absorbed instead of only the first one.
	ConcatMergedGeometry bool
	// CacheTTLSeconds is how long normalized results stay cached (0 disables caching).
	CacheTTLSeconds int
}

// ItineraryService turns raw itineraries into display-ready ones.
type ItineraryService struct {
	repo      ports.ItineraryRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	mode      geometry.GeometryMode
	cacheTTL  int
	now       func() time.Time
}

// NewItineraryService creates a new ItineraryService. repo, cache and
// publisher may each be nil when the caller only needs in-memory normalization.
func NewItineraryService(
	repo ports.ItineraryRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	opts ItineraryOptions,
) *ItineraryService {
	return &ItineraryService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		mode:      geometry.ModeFor(opts.ConcatMergedGeometry),
		cacheTTL:  opts.CacheTTLSeconds,
		now:       time.Now,
	}
}

// GeometryMode reports which polylines merged legs contribute.
func (s *ItineraryService) GeometryMode() geometry.GeometryMode {
	return s.mode
}

// Normalize computes the relevant legs, their paths and the bounding box of it.
func (s *ItineraryService) Normalize(ctx context.Context, it domain.Itinerary) *domain.NormalizedItinerary {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "ItineraryService.Normalize",
		trace.WithAttributes(
			telemetry.AttrItineraryID.String(it.ID),
			telemetry.AttrLegCount.Int(len(it.Legs)),
			telemetry.AttrGeometryMode.String(s.mode.String()),
		))
	defer span.End()

	key := s.cacheKey(it)
	if n, ok := s.fromCache(ctx, key); ok {
		span.SetAttributes(telemetry.AttrCacheHit.Bool(true))
		n.ID = it.ID
		return n
	}

	start := time.Now()
	n := Normalize(it, s.mode, s.now())
	metrics.NormalizeDuration.Observe(time.Since(start).Seconds())
	recordNormalization(it, n)

	span.SetAttributes(
		telemetry.AttrCacheHit.Bool(false),
		telemetry.AttrRelevantLegs.Int(len(n.Legs)),
		telemetry.AttrHasBounds.Bool(n.BoundingBox != nil),
	)

	s.toCache(ctx, key, n)
	return n
}

// NormalizePlan normalizes every itinerary of a plan, keeping their order.
func (s *ItineraryService) NormalizePlan(ctx context.Context, plan domain.Plan) []domain.NormalizedItinerary {
	out := make([]domain.NormalizedItinerary, 0, len(plan.Itineraries))
	for _, it := range plan.Itineraries {
		out = append(out, *s.Normalize(ctx, it))
	}
	return out
}

// Ingest normalizes an itinerary, stores it and announces the result.
// A publish failure is logged but does not fail the ingestion.
func (s *ItineraryService) Ingest(ctx context.Context, it domain.Itinerary, source string) (*domain.NormalizedItinerary, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}

	n := s.Normalize(ctx, it)
	metrics.ItinerariesNormalized.WithLabelValues(source).Inc()

	id, err := s.repo.Save(ctx, &it, n)
	if err != nil {
		metrics.NormalizeErrors.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("save itinerary: %w", err)
	}
	n.ID = id

	if s.publisher != nil {
		if err := s.publisher.PublishNormalized(ctx, n); err != nil {
			metrics.NormalizeErrors.WithLabelValues("publish").Inc()
			slog.WarnContext(ctx, "publish normalized itinerary", "id", id, "error", err)
		}
	}

	return n, nil
}

// Get returns a stored normalized itinerary.
func (s *ItineraryService) Get(ctx context.Context, id string) (*domain.NormalizedItinerary, error) {
	if id == "" {
		return nil, fmt.Errorf("itinerary id is required")
	}
	if s.repo == nil {
		return nil, ErrNotFound
	}

	n, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get itinerary %s: %w", id, err)
	}
	return n, nil
}

// List returns a page of stored itinerary summaries and the total count.
func (s *ItineraryService) List(ctx context.Context, offset, limit int) ([]domain.ItinerarySummary, int, error) {
	if s.repo == nil {
		return nil, 0, nil
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count itineraries: %w", err)
	}
	items, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list itineraries: %w", err)
	}
	return items, total, nil
}

// ListIDs returns the IDs of every stored itinerary.
func (s *ItineraryService) ListIDs(ctx context.Context) ([]string, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListIDs(ctx)
}

// Renormalize recomputes a stored itinerary from its raw form with the current options.
func (s *ItineraryService) Renormalize(ctx context.Context, id string) (*domain.NormalizedItinerary, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}

	raw, err := s.repo.GetRaw(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get raw itinerary %s: %w", id, err)
	}

	raw.ID = id
	n := Normalize(*raw, s.mode, s.now())
	n.ID = id
	recordNormalization(*raw, n)

	if _, err := s.repo.Save(ctx, raw, n); err != nil {
		return nil, fmt.Errorf("save itinerary %s: %w", id, err)
	}
	return n, nil
}

// Normalize is the uncached core of ItineraryService.Normalize.
func Normalize(it domain.Itinerary, mode geometry.GeometryMode, now time.Time) *domain.NormalizedItinerary {
	relevant := it.RelevantLegs()

	legs := make([]domain.DisplayLeg, 0, len(relevant))
	var total float64
	for _, leg := range relevant {
		points := geometry.LegPoints(leg, mode)
		if points == nil {
			points = []domain.Coordinate{}
		}
		length := geometry.PathLength(points)
		total += length
		legs = append(legs, domain.DisplayLeg{Leg: leg, Points: points, LengthMeters: length})
	}

	n := &domain.NormalizedItinerary{
		ID:               it.ID,
		Legs:             legs,
		BoundingBox:      geometry.BoundingBox(it.Legs, mode),
		PathLengthMeters: total,
		DurationSeconds:  it.DurationSeconds,
		StartTime:        it.StartTime,
		EndTime:          it.EndTime,
		Transfers:        it.Transfers,
		GeometryMode:     mode.String(),
		NormalizedAt:     now.UTC(),
	}
	if n.BoundingBox != nil {
		b := geometry.RectBounds(*n.BoundingBox)
		n.Bounds = &b
	}
	return n
}

func recordNormalization(it domain.Itinerary, n *domain.NormalizedItinerary) {
	dropped := 0
	for _, l := range it.Legs {
		if l.IsNegligibleWalk() {
			dropped++
		}
	}
	metrics.WalksDropped.Add(float64(dropped))
	metrics.LegsMerged.Add(float64(len(it.Legs) - dropped - len(n.Legs)))
	if n.BoundingBox == nil {
		metrics.BoundingBoxAbsent.Inc()
	}
}

func (s *ItineraryService) cacheKey(it domain.Itinerary) string {
	if s.cache == nil || s.cacheTTL <= 0 {
		return ""
	}
	data, err := json.Marshal(it)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return "itinerary:normalized:" + s.mode.String() + ":" + hex.EncodeToString(sum[:])
}

func (s *ItineraryService) fromCache(ctx context.Context, key string) (*domain.NormalizedItinerary, bool) {
	if key == "" {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("normalize").Inc()
		return nil, false
	}
	var n domain.NormalizedItinerary
	if err := json.Unmarshal(data, &n); err != nil {
		metrics.CacheMisses.WithLabelValues("normalize").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("normalize").Inc()
	return &n, true
}

func (s *ItineraryService) toCache(ctx context.Context, key string, n *domain.NormalizedItinerary) {
	if key == "" {
		return
	}
	if data, err := json.Marshal(n); err == nil {
		_ = s.cache.Set(ctx, key, data, s.cacheTTL)
	}
}
