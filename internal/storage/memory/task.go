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

// TaskStore is an in-memory task store mirroring the postgres repository's
// status-guarded transitions: a terminal transition happens at most once.
type TaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*types.Task
	order []uuid.UUID
}

// NewTaskStore creates an empty TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[uuid.UUID]*types.Task)}
}

func cloneTask(t *types.Task) *types.Task {
	data, _ := json.Marshal(t)
	var out types.Task
	_ = json.Unmarshal(data, &out)
	return &out
}

// Create stores a pending task.
func (s *TaskStore) Create(ctx context.Context, task *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	s.tasks[task.ID] = cloneTask(task)
	s.order = append(s.order, task.ID)
	return nil
}

// Get returns a task by id.
func (s *TaskStore) Get(ctx context.Context, id uuid.UUID) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return cloneTask(task), nil
}

// LatestForTrip returns the most recently created task for a trip.
func (s *TaskStore) LatestForTrip(ctx context.Context, tripID uuid.UUID) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		task := s.tasks[s.order[i]]
		if task.TripID != nil && *task.TripID == tripID {
			return cloneTask(task), nil
		}
	}
	return nil, postgres.ErrNotFound
}

// Claim transitions pending to in_progress. Only one caller wins.
func (s *TaskStore) Claim(ctx context.Context, id uuid.UUID) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Status != types.TaskPending {
		return nil, postgres.ErrNotFound
	}
	task.Status = types.TaskInProgress
	task.UpdatedAt = time.Now().UTC()
	return cloneTask(task), nil
}

// UpdateProgress records a stage transition on a running task.
func (s *TaskStore) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, stage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Status != types.TaskInProgress {
		return nil
	}
	task.Progress = progress
	task.Stage = stage
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// IncrementAttempts bumps the attempt counter.
func (s *TaskStore) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.tasks[id]; ok {
		task.Attempts++
		task.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Complete transitions a running task to completed.
func (s *TaskStore) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Status != types.TaskInProgress {
		return postgres.ErrNotFound
	}
	task.Status = types.TaskCompleted
	task.Progress = 100
	task.Result = result
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail transitions a running task to failed, preserving the error verbatim.
func (s *TaskStore) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Status != types.TaskInProgress {
		return postgres.ErrNotFound
	}
	task.Status = types.TaskFailed
	task.Error = &errMsg
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCancelled transitions a running task to cancelled.
func (s *TaskStore) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Status != types.TaskInProgress {
		return postgres.ErrNotFound
	}
	task.Status = types.TaskCancelled
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// RequestCancel sets the cancel flag.
func (s *TaskStore) RequestCancel(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return postgres.ErrNotFound
	}
	task.CancelRequested = true
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// CancelRequested reports whether cancellation has been requested.
func (s *TaskStore) CancelRequested(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false, postgres.ErrNotFound
	}
	return task.CancelRequested, nil
}
