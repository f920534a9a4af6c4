// Package memory provides in-memory stores with the same semantics as the
// postgres repositories. They back unit tests; nothing in the binaries uses
// them.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/travvy-ai/travvy-backend/internal/storage/postgres"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

// TripStore is an in-memory trip store with conditional-update semantics
// matching the postgres repository.
type TripStore struct {
	mu    sync.Mutex
	trips map[uuid.UUID]*types.Trip
}

// NewTripStore creates an empty TripStore.
func NewTripStore() *TripStore {
	return &TripStore{trips: make(map[uuid.UUID]*types.Trip)}
}

func cloneTrip(t *types.Trip) *types.Trip {
	data, _ := json.Marshal(t)
	var out types.Trip
	_ = json.Unmarshal(data, &out)
	return &out
}

// Create stores the trip at version 1.
func (s *TripStore) Create(ctx context.Context, trip *types.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	trip.Version = 1
	trip.CreatedAt = now
	trip.UpdatedAt = now
	s.trips[trip.ID] = cloneTrip(trip)
	return nil
}

// GetByID returns a live trip.
func (s *TripStore) GetByID(ctx context.Context, id uuid.UUID) (*types.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, ok := s.trips[id]
	if !ok || trip.DeletedAt != nil {
		return nil, postgres.ErrNotFound
	}
	return cloneTrip(trip), nil
}

// List returns trips the user collaborates on.
func (s *TripStore) List(ctx context.Context, userID uuid.UUID, status *types.TripStatus, limit, offset int) ([]types.Trip, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []types.Trip
	for _, trip := range s.trips {
		if trip.DeletedAt != nil {
			continue
		}
		if _, ok := trip.Collaborators[userID.String()]; !ok {
			continue
		}
		if status != nil && trip.Status != *status {
			continue
		}
		matched = append(matched, *cloneTrip(trip))
	}

	total := len(matched)
	if offset >= len(matched) {
		return []types.Trip{}, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// UpdateVersioned applies the write only if the stored version still equals
// expectedVersion. A mismatch leaves the stored trip untouched.
func (s *TripStore) UpdateVersioned(ctx context.Context, trip *types.Trip, expectedVersion int) (*types.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.trips[trip.ID]
	if !ok || stored.DeletedAt != nil {
		return nil, postgres.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return nil, postgres.ErrVersionConflict
	}

	next := cloneTrip(trip)
	next.Version = expectedVersion + 1
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	s.trips[trip.ID] = next
	return cloneTrip(next), nil
}

// ApplyGenerationResult stores worker output with an unconditional version
// bump, the single writer being the claiming worker.
func (s *TripStore) ApplyGenerationResult(ctx context.Context, id uuid.UUID, itinerary []types.DayPlan, hotels []types.HotelOption, gen types.AIGeneration, status types.TripStatus) (*types.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.trips[id]
	if !ok || stored.DeletedAt != nil {
		return nil, postgres.ErrNotFound
	}

	stored.Itinerary = itinerary
	stored.Hotels = hotels
	stored.AIGeneration = gen
	stored.Status = status
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	return cloneTrip(stored), nil
}

// SoftDelete marks a trip deleted.
func (s *TripStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.trips[id]
	if !ok || stored.DeletedAt != nil {
		return postgres.ErrNotFound
	}
	now := time.Now().UTC()
	stored.DeletedAt = &now
	return nil
}
