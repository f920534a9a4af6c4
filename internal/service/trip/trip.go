package trip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/travvy-ai/travvy-backend/internal/events"
	"github.com/travvy-ai/travvy-backend/internal/service/planner"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

// ErrForbidden is returned when the caller lacks the role a mutation needs.
var ErrForbidden = errors.New("forbidden")

// Store is the persistence surface the trip service needs. The postgres
// implementation performs UpdateVersioned as a single conditional statement.
type Store interface {
	Create(ctx context.Context, trip *types.Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*types.Trip, error)
	List(ctx context.Context, userID uuid.UUID, status *types.TripStatus, limit, offset int) ([]types.Trip, int, error)
	UpdateVersioned(ctx context.Context, trip *types.Trip, expectedVersion int) (*types.Trip, error)
	ApplyGenerationResult(ctx context.Context, id uuid.UUID, itinerary []types.DayPlan, hotels []types.HotelOption, gen types.AIGeneration, status types.TripStatus) (*types.Trip, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Cache is the read-cache surface. Get returns "" on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Tasks is the background-task surface the trip service submits through.
type Tasks interface {
	Submit(ctx context.Context, kind types.TaskKind, userID uuid.UUID, tripID *uuid.UUID, payload any) (*types.Task, error)
	LatestForTrip(ctx context.Context, tripID uuid.UUID) (*types.Task, error)
}

// Service implements trip management: creation with background generation,
// optimistic-concurrency updates, access control and collaboration.
type Service struct {
	store    Store
	cache    Cache
	tasks    Tasks
	events   events.Publisher
	cacheTTL time.Duration
	logger   *logrus.Logger
}

// NewService creates a new trip Service. cache may be nil to disable the
// read cache.
func NewService(store Store, cache Cache, tasks Tasks, publisher events.Publisher, cacheTTL time.Duration, logger *logrus.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		store:    store,
		cache:    cache,
		tasks:    tasks,
		events:   publisher,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// CreateRequest is the input for creating a trip. Dates use YYYY-MM-DD.
type CreateRequest struct {
	Destination string          `json:"destination"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Budget      float64         `json:"budget"`
	Currency    string          `json:"currency"`
	Travelers   types.Travelers `json:"travelers"`
	Preferences map[string]any  `json:"preferences,omitempty"`
}

// Create validates the request, persists the trip at version 1 with status
// generating, and submits the itinerary generation task. It returns as soon
// as the task is queued; generation happens on the worker.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateRequest) (*types.Trip, *types.Task, error) {
	start, end, err := validateCreate(req)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	duration := dayCount(start, end)
	trip := &types.Trip{
		ID:        uuid.New(),
		CreatedBy: userID,
		Collaborators: map[string]types.Collaborator{
			userID.String(): {
				Role:        types.RoleOwner,
				JoinedAt:    now,
				Permissions: permissionsFor(types.RoleOwner),
			},
		},
		Metadata: types.TripMetadata{
			Title:       "Trip to " + req.Destination,
			Destination: types.Destination{Name: req.Destination},
			Dates: types.DateRange{
				StartDate: start,
				EndDate:   end,
				Duration:  duration,
			},
			Travelers: withTotal(req.Travelers),
			Budget: types.Budget{
				Currency: req.Currency,
				Total:    req.Budget,
			},
		},
		Itinerary: []types.DayPlan{},
		Hotels:    []types.HotelOption{},
		Status:    types.TripStatusGenerating,
	}

	if err := s.store.Create(ctx, trip); err != nil {
		return nil, nil, err
	}

	payload := planner.GenerationPayload{
		TripID:      trip.ID,
		Destination: req.Destination,
		StartDate:   start,
		EndDate:     end,
		Days:        duration,
		Budget:      trip.Metadata.Budget,
		Travelers:   trip.Metadata.Travelers,
		Preferences: req.Preferences,
	}
	task, err := s.tasks.Submit(ctx, types.TaskTripGeneration, userID, &trip.ID, payload)
	if err != nil {
		return nil, nil, fmt.Errorf("submit generation task: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id": trip.ID,
		"task_id": task.ID,
	}).Info("trip created, generation queued")

	return trip, task, nil
}

// Get returns a trip the user collaborates on, via the read cache when warm.
func (s *Service) Get(ctx context.Context, userID, tripID uuid.UUID) (*types.Trip, error) {
	trip, err := s.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.CanView(userID) {
		return nil, ErrForbidden
	}
	return trip, nil
}

// List returns the user's trips with pagination and an optional status
// filter.
func (s *Service) List(ctx context.Context, userID uuid.UUID, status *types.TripStatus, limit, offset int) ([]types.Trip, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, userID, status, limit, offset)
}

// Update applies a partial patch with optimistic concurrency. The write is
// accepted only if the stored version still equals expectedVersion; a
// concurrent writer that committed first surfaces as ErrVersionConflict with
// no partial effect, and the caller must re-read and resubmit. Conflicts are
// never retried here: the correct merged patch is caller-specific.
func (s *Service) Update(ctx context.Context, userID, tripID uuid.UUID, patch *types.TripPatch, expectedVersion int) (*types.Trip, error) {
	if expectedVersion < 0 {
		return nil, validationError("version must be a non-negative integer")
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	trip, err := s.store.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.CanEdit(userID) {
		return nil, ErrForbidden
	}

	applyPatch(trip, patch)

	updated, err := s.store.UpdateVersioned(ctx, trip, expectedVersion)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tripID)
	s.events.Publish(ctx, events.Event{
		Type:    events.TypeTripChanged,
		TripID:  tripID,
		Version: updated.Version,
	})
	return updated, nil
}

// Delete soft-deletes a trip. Owner only.
func (s *Service) Delete(ctx context.Context, userID, tripID uuid.UUID) error {
	trip, err := s.store.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if !trip.IsOwner(userID) {
		return ErrForbidden
	}
	if err := s.store.SoftDelete(ctx, tripID); err != nil {
		return err
	}
	s.invalidate(ctx, tripID)
	s.events.Publish(ctx, events.Event{Type: events.TypeTripChanged, TripID: tripID})
	return nil
}

// Duplicate copies a trip the user can view into a fresh planning trip owned
// by them, back at version 1.
func (s *Service) Duplicate(ctx context.Context, userID, tripID uuid.UUID) (*types.Trip, error) {
	src, err := s.Get(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dup := *src
	dup.ID = uuid.New()
	dup.CreatedBy = userID
	dup.Collaborators = map[string]types.Collaborator{
		userID.String(): {
			Role:        types.RoleOwner,
			JoinedAt:    now,
			Permissions: permissionsFor(types.RoleOwner),
		},
	}
	dup.Metadata.Title = "Copy of " + src.Metadata.Title
	dup.Status = types.TripStatusPlanning
	dup.Version = 0
	dup.DeletedAt = nil

	if err := s.store.Create(ctx, &dup); err != nil {
		return nil, err
	}
	return &dup, nil
}

// Invite adds a collaborator with the given role. Owner only; the grant is a
// versioned write so it linearizes with concurrent edits.
func (s *Service) Invite(ctx context.Context, ownerID, tripID, userID uuid.UUID, role types.CollaboratorRole) (*types.Trip, error) {
	if role != types.RoleEditor && role != types.RoleViewer {
		return nil, validationError("role must be editor or viewer")
	}
	trip, err := s.store.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsOwner(ownerID) {
		return nil, ErrForbidden
	}

	trip.Collaborators[userID.String()] = types.Collaborator{
		Role:        role,
		JoinedAt:    time.Now().UTC(),
		Permissions: permissionsFor(role),
	}

	updated, err := s.store.UpdateVersioned(ctx, trip, trip.Version)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tripID)
	s.events.Publish(ctx, events.Event{
		Type:    events.TypeTripChanged,
		TripID:  tripID,
		Version: updated.Version,
	})
	return updated, nil
}

// Optimize submits a background optimization task for the trip.
func (s *Service) Optimize(ctx context.Context, userID, tripID uuid.UUID, criteria string, constraints map[string]any) (*types.Task, error) {
	trip, err := s.Get(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	if criteria == "" {
		criteria = "time"
	}
	payload := planner.OptimizationPayload{
		TripID:      trip.ID,
		Criteria:    criteria,
		Constraints: constraints,
	}
	return s.tasks.Submit(ctx, types.TaskTripOptimization, userID, &trip.ID, payload)
}

// StatusView is the generation/processing status of a trip.
type StatusView struct {
	Status       types.TripStatus   `json:"status"`
	Version      int                `json:"version"`
	UpdatedAt    time.Time          `json:"last_updated"`
	AIGeneration types.AIGeneration `json:"ai_generation"`
	Task         *types.Task        `json:"task,omitempty"`
}

// Status returns the trip status together with its latest background task.
func (s *Service) Status(ctx context.Context, userID, tripID uuid.UUID) (*StatusView, error) {
	trip, err := s.Get(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	view := &StatusView{
		Status:       trip.Status,
		Version:      trip.Version,
		UpdatedAt:    trip.UpdatedAt,
		AIGeneration: trip.AIGeneration,
	}
	if task, err := s.tasks.LatestForTrip(ctx, tripID); err == nil {
		view.Task = task
	}
	return view, nil
}

// ApplyGenerationResult stores worker output on the trip and moves it out of
// the generating state. Called from the worker, never from request handlers.
func (s *Service) ApplyGenerationResult(ctx context.Context, tripID uuid.UUID, itinerary []types.DayPlan, hotels []types.HotelOption, gen types.AIGeneration) (*types.Trip, error) {
	updated, err := s.store.ApplyGenerationResult(ctx, tripID, itinerary, hotels, gen, types.TripStatusPlanning)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tripID)
	s.events.Publish(ctx, events.Event{
		Type:    events.TypeTripChanged,
		TripID:  tripID,
		Version: updated.Version,
	})
	return updated, nil
}

func (s *Service) load(ctx context.Context, tripID uuid.UUID) (*types.Trip, error) {
	key := cacheKey(tripID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
			var trip types.Trip
			if err := json.Unmarshal([]byte(cached), &trip); err == nil {
				return &trip, nil
			}
		}
	}

	trip, err := s.store.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(trip); err == nil {
			if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
				s.logger.WithError(err).Warn("failed to cache trip")
			}
		}
	}
	return trip, nil
}

func (s *Service) invalidate(ctx context.Context, tripID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(tripID)); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate trip cache")
	}
}

func cacheKey(tripID uuid.UUID) string {
	return "travvy:trips:" + tripID.String()
}

func permissionsFor(role types.CollaboratorRole) []string {
	switch role {
	case types.RoleOwner:
		return []string{"read", "write", "delete", "collaborate"}
	case types.RoleEditor:
		return []string{"read", "write"}
	default:
		return []string{"read"}
	}
}

func withTotal(t types.Travelers) types.Travelers {
	t.Total = t.Adults + t.Children + t.Infants
	return t
}

func dayCount(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}
