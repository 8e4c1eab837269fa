package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/tripshape/internal/core/domain"
	"github.com/samirrijal/tripshape/internal/core/ports"
)

// ItineraryRepo implements ports.ItineraryRepository with pgx.
type ItineraryRepo struct {
	db *DB
}

// NewItineraryRepo creates a new ItineraryRepo.
func NewItineraryRepo(db *DB) *ItineraryRepo {
	return &ItineraryRepo{db: db}
}

// Save inserts a new row when n.ID is empty and upserts by ID otherwise.
func (r *ItineraryRepo) Save(ctx context.Context, raw *domain.Itinerary, n *domain.NormalizedItinerary) (string, error) {
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("marshal raw itinerary: %w", err)
	}
	normJSON, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal normalized itinerary: %w", err)
	}

	var id string
	if n.ID == "" {
		err = r.db.Pool.QueryRow(ctx, `
			INSERT INTO itineraries (raw, normalized, leg_count, has_bounds)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, rawJSON, normJSON, len(n.Legs), n.BoundingBox != nil).Scan(&id)
	} else {
		err = r.db.Pool.QueryRow(ctx, `
			INSERT INTO itineraries (id, raw, normalized, leg_count, has_bounds)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET raw = EXCLUDED.raw, normalized = EXCLUDED.normalized,
			    leg_count = EXCLUDED.leg_count, has_bounds = EXCLUDED.has_bounds,
			    updated_at = now()
			RETURNING id
		`, n.ID, rawJSON, normJSON, len(n.Legs), n.BoundingBox != nil).Scan(&id)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetByID returns the normalized form of a stored itinerary.
func (r *ItineraryRepo) GetByID(ctx context.Context, id string) (*domain.NormalizedItinerary, error) {
	if !validID(id) {
		return nil, ports.ErrNotFound
	}

	var data []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT normalized FROM itineraries WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var n domain.NormalizedItinerary
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode normalized itinerary %s: %w", id, err)
	}
	n.ID = id
	return &n, nil
}

// GetRaw returns the itinerary as it was received.
func (r *ItineraryRepo) GetRaw(ctx context.Context, id string) (*domain.Itinerary, error) {
	if !validID(id) {
		return nil, ports.ErrNotFound
	}

	var data []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT raw FROM itineraries WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var it domain.Itinerary
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("decode raw itinerary %s: %w", id, err)
	}
	return &it, nil
}

// List returns summaries ordered by creation time, newest first.
func (r *ItineraryRepo) List(ctx context.Context, offset, limit int) ([]domain.ItinerarySummary, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, leg_count, COALESCE((normalized->>'duration_seconds')::int, 0),
		       has_bounds, created_at, updated_at
		FROM itineraries
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ItinerarySummary, 0, limit)
	for rows.Next() {
		var s domain.ItinerarySummary
		if err := rows.Scan(&s.ID, &s.LegCount, &s.DurationSeconds, &s.HasBounds, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ListIDs returns every stored itinerary ID.
func (r *ItineraryRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id FROM itineraries ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Count returns the number of stored itineraries.
func (r *ItineraryRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM itineraries`).Scan(&n)
	return n, err
}

// validID reports whether id can name a row. Anything that is not a UUID
// cannot exist in the table.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
