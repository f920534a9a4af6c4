package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travvy-ai/travvy-backend/internal/types"
)

const taskColumns = `id, kind, trip_id, user_id, payload, status, progress, stage, result, error, attempts, cancel_requested, created_at, updated_at`

// TaskRepository handles database operations for background tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func scanTask(row pgx.Row) (*types.Task, error) {
	var t types.Task
	err := row.Scan(
		&t.ID, &t.Kind, &t.TripID, &t.UserID, &t.Payload, &t.Status,
		&t.Progress, &t.Stage, &t.Result, &t.Error, &t.Attempts,
		&t.CancelRequested, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a pending task.
func (r *TaskRepository) Create(ctx context.Context, task *types.Task) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, kind, trip_id, user_id, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		task.ID, task.Kind, task.TripID, task.UserID, task.Payload, task.Status,
	)
	if err := row.Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Get returns a task by id.
func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*types.Task, error) {
	task, err := scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// LatestForTrip returns the most recently submitted task for a trip.
func (r *TaskRepository) LatestForTrip(ctx context.Context, tripID uuid.UUID) (*types.Task, error) {
	task, err := scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE trip_id = $1 ORDER BY created_at DESC LIMIT 1`, tripID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest task: %w", err)
	}
	return task, nil
}

// Claim transitions a pending task to in_progress. Only one worker can win
// the claim; the rest see ErrNotFound.
func (r *TaskRepository) Claim(ctx context.Context, id uuid.UUID) (*types.Task, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+taskColumns,
		id, types.TaskInProgress, types.TaskPending,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("claim task: %w", err)
	}
	return task, nil
}

// UpdateProgress records a stage transition on a running task.
func (r *TaskRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, stage string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks SET progress = $2, stage = $3, updated_at = now()
		WHERE id = $1 AND status = $4`,
		id, progress, stage, types.TaskInProgress,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the attempt counter after a failed try.
func (r *TaskRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tasks SET attempts = attempts + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

// Complete transitions a running task to completed with its result. The
// status guard makes the terminal transition happen at most once.
func (r *TaskRepository) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, progress = 100, result = $3, updated_at = now()
		WHERE id = $1 AND status = $4`,
		id, types.TaskCompleted, result, types.TaskInProgress,
	)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Fail transitions a running task to failed, preserving the error verbatim.
func (r *TaskRepository) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, error = $3, updated_at = now()
		WHERE id = $1 AND status = $4`,
		id, types.TaskFailed, errMsg, types.TaskInProgress,
	)
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCancelled transitions a running task to cancelled.
func (r *TaskRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, types.TaskCancelled, types.TaskInProgress,
	)
	if err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequestCancel sets the cancel flag. The worker observes it between stages.
func (r *TaskRepository) RequestCancel(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET cancel_requested = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelRequested reports whether cancellation has been requested.
func (r *TaskRepository) CancelRequested(ctx context.Context, id uuid.UUID) (bool, error) {
	var requested bool
	err := r.pool.QueryRow(ctx,
		`SELECT cancel_requested FROM tasks WHERE id = $1`, id).Scan(&requested)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("check cancel: %w", err)
	}
	return requested, nil
}
