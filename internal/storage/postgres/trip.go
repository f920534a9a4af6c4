package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travvy-ai/travvy-backend/internal/types"
)

const tripColumns = `id, created_by, collaborators, metadata, ai_generation, itinerary, hotels, status, version, created_at, updated_at, deleted_at`

// TripRepository handles database operations for trips.
type TripRepository struct {
	pool *pgxpool.Pool
}

// NewTripRepository creates a new TripRepository.
func NewTripRepository(pool *pgxpool.Pool) *TripRepository {
	return &TripRepository{pool: pool}
}

func scanTrip(row pgx.Row) (*types.Trip, error) {
	var t types.Trip
	err := row.Scan(
		&t.ID, &t.CreatedBy, &t.Collaborators, &t.Metadata, &t.AIGeneration,
		&t.Itinerary, &t.Hotels, &t.Status, &t.Version,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new trip at version 1.
func (r *TripRepository) Create(ctx context.Context, trip *types.Trip) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO trips (id, created_by, collaborators, metadata, ai_generation, itinerary, hotels, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING version, created_at, updated_at`,
		trip.ID, trip.CreatedBy, trip.Collaborators, trip.Metadata,
		trip.AIGeneration, trip.Itinerary, trip.Hotels, trip.Status,
	)
	if err := row.Scan(&trip.Version, &trip.CreatedAt, &trip.UpdatedAt); err != nil {
		return fmt.Errorf("create trip: %w", err)
	}
	return nil
}

// GetByID returns a trip by id. Soft-deleted trips are treated as absent.
func (r *TripRepository) GetByID(ctx context.Context, id uuid.UUID) (*types.Trip, error) {
	trip, err := scanTrip(r.pool.QueryRow(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return trip, nil
}

// List returns trips the user collaborates on, newest first, with an optional
// status filter.
func (r *TripRepository) List(ctx context.Context, userID uuid.UUID, status *types.TripStatus, limit, offset int) ([]types.Trip, int, error) {
	where := `collaborators ? $1 AND deleted_at IS NULL`
	args := []any{userID.String()}
	if status != nil {
		where += ` AND status = $2`
		args = append(args, string(*status))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM trips WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count trips: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM trips WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		tripColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []types.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, *t)
	}
	return trips, total, rows.Err()
}

// UpdateVersioned applies the full document state in trip if and only if the
// stored version still equals expectedVersion, incrementing the version by
// exactly one. The write is a single conditional statement; a concurrent
// writer that committed first causes ErrVersionConflict with no partial
// effect.
func (r *TripRepository) UpdateVersioned(ctx context.Context, trip *types.Trip, expectedVersion int) (*types.Trip, error) {
	updated, err := scanTrip(r.pool.QueryRow(ctx, `
		UPDATE trips
		SET collaborators = $3, metadata = $4, ai_generation = $5, itinerary = $6,
		    hotels = $7, status = $8, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING `+tripColumns,
		trip.ID, expectedVersion, trip.Collaborators, trip.Metadata,
		trip.AIGeneration, trip.Itinerary, trip.Hotels, trip.Status,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update trip: %w", err)
	}

	// Zero rows: distinguish a missing trip from a version mismatch.
	var current int
	err = r.pool.QueryRow(ctx,
		`SELECT version FROM trips WHERE id = $1 AND deleted_at IS NULL`, trip.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check trip version: %w", err)
	}
	return nil, ErrVersionConflict
}

// ApplyGenerationResult stores the worker's output on the trip. The version
// counter still advances atomically so collaborator edits made during
// generation keep their linearization.
func (r *TripRepository) ApplyGenerationResult(ctx context.Context, id uuid.UUID, itinerary []types.DayPlan, hotels []types.HotelOption, gen types.AIGeneration, status types.TripStatus) (*types.Trip, error) {
	updated, err := scanTrip(r.pool.QueryRow(ctx, `
		UPDATE trips
		SET itinerary = $2, hotels = $3, ai_generation = $4, status = $5,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+tripColumns,
		id, itinerary, hotels, gen, status,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("apply generation result: %w", err)
	}
	return updated, nil
}

// SoftDelete marks a trip deleted without removing the row.
func (r *TripRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE trips SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
