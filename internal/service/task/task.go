package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/travvy-ai/travvy-backend/internal/types"
)

// ErrForbidden is returned when the caller did not submit the task.
var ErrForbidden = errors.New("forbidden")

// ErrTerminal is returned when cancelling a task that already finished.
var ErrTerminal = errors.New("task already in a terminal state")

// Store is the persistence surface the task service needs.
type Store interface {
	Create(ctx context.Context, task *types.Task) error
	Get(ctx context.Context, id uuid.UUID) (*types.Task, error)
	LatestForTrip(ctx context.Context, tripID uuid.UUID) (*types.Task, error)
	RequestCancel(ctx context.Context, id uuid.UUID) error
}

// Queue delivers task ids to the worker pool.
type Queue interface {
	Push(ctx context.Context, id uuid.UUID) error
}

// Service handles background task submission and status reads. Submission is
// fire-and-forget: it persists a pending row and enqueues the id, returning
// before any stage of execution runs.
type Service struct {
	store  Store
	queue  Queue
	logger *logrus.Logger
}

// NewService creates a new task Service.
func NewService(store Store, queue Queue, logger *logrus.Logger) *Service {
	return &Service{store: store, queue: queue, logger: logger}
}

// Submit creates a pending task and enqueues it for the worker pool. The
// returned task has not started executing.
func (s *Service) Submit(ctx context.Context, kind types.TaskKind, userID uuid.UUID, tripID *uuid.UUID, payload any) (*types.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	task := &types.Task{
		ID:      uuid.New(),
		Kind:    kind,
		TripID:  tripID,
		UserID:  userID,
		Payload: data,
		Status:  types.TaskPending,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}
	if err := s.queue.Push(ctx, task.ID); err != nil {
		return nil, fmt.Errorf("enqueue task: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"kind":    kind,
	}).Info("task submitted")
	return task, nil
}

// Get returns the task view for its submitter. Clients poll this until a
// terminal state and must inspect Status explicitly: completion of polling
// never implies success.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*types.Task, error) {
	task, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, ErrForbidden
	}
	return task, nil
}

// LatestForTrip returns the most recent task submitted for a trip.
func (s *Service) LatestForTrip(ctx context.Context, tripID uuid.UUID) (*types.Task, error) {
	return s.store.LatestForTrip(ctx, tripID)
}

// Cancel requests cancellation. The worker observes the flag between stages;
// a task that already reached a terminal state cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, userID, id uuid.UUID) error {
	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if task.Status.Terminal() {
		return ErrTerminal
	}
	return s.store.RequestCancel(ctx, id)
}
