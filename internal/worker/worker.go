package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/travvy-ai/travvy-backend/internal/ai/gemini"
	"github.com/travvy-ai/travvy-backend/internal/cache/redis"
	"github.com/travvy-ai/travvy-backend/internal/service/planner"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

// errCancelled aborts a pipeline when the cancel flag was set between stages.
var errCancelled = errors.New("cancellation requested")

// TaskStore is the persistence surface the worker drives tasks through.
type TaskStore interface {
	Claim(ctx context.Context, id uuid.UUID) (*types.Task, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int, stage string) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	Fail(ctx context.Context, id uuid.UUID, errMsg string) error
	MarkCancelled(ctx context.Context, id uuid.UUID) error
	CancelRequested(ctx context.Context, id uuid.UUID) (bool, error)
}

// Queue is the source of task ids.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (uuid.UUID, error)
}

// TripReader loads trips for tasks that transform an existing itinerary.
type TripReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.Trip, error)
}

// Trips is the write-back surface for generation and optimization output. The
// trip service implements it with cache invalidation and change events.
type Trips interface {
	ApplyGenerationResult(ctx context.Context, tripID uuid.UUID, itinerary []types.DayPlan, hotels []types.HotelOption, gen types.AIGeneration) (*types.Trip, error)
}

// Config controls the worker pool.
type Config struct {
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
	PopTimeout   time.Duration
}

// Worker consumes the task queue and executes pipelines stage by stage.
// Each task reaches exactly one terminal state; cancellation is observed
// between stages, never mid-stage.
type Worker struct {
	store   TaskStore
	queue   Queue
	planner *planner.Service
	trips   Trips
	reader  TripReader
	cfg     Config
	logger  *logrus.Logger
}

// New creates a worker pool.
func New(store TaskStore, queue Queue, p *planner.Service, trips Trips, reader TripReader, cfg Config, logger *logrus.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Worker{
		store:   store,
		queue:   queue,
		planner: p,
		trips:   trips,
		reader:  reader,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run consumes the queue until ctx ends. It blocks.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		id, err := w.queue.Pop(ctx, w.cfg.PopTimeout)
		if err != nil {
			if errors.Is(err, redis.ErrEmptyQueue) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.logger.WithError(err).Error("failed to pop task")
			continue
		}
		w.Process(ctx, id)
	}
}

// Process claims a task and runs its pipeline to a terminal state. A task
// another worker already claimed is skipped silently.
func (w *Worker) Process(ctx context.Context, id uuid.UUID) {
	task, err := w.store.Claim(ctx, id)
	if err != nil {
		w.logger.WithError(err).WithField("task_id", id).Debug("task not claimable")
		return
	}

	log := w.logger.WithFields(logrus.Fields{"task_id": task.ID, "kind": task.Kind})
	log.Info("task started")

	result, err := w.run(ctx, task)
	switch {
	case errors.Is(err, errCancelled):
		if err := w.store.MarkCancelled(ctx, task.ID); err != nil {
			log.WithError(err).Error("failed to mark task cancelled")
			return
		}
		log.Info("task cancelled")
	case err != nil:
		if ferr := w.store.Fail(ctx, task.ID, err.Error()); ferr != nil {
			log.WithError(ferr).Error("failed to mark task failed")
			return
		}
		log.WithError(err).Warn("task failed")
	default:
		if err := w.store.Complete(ctx, task.ID, result); err != nil {
			log.WithError(err).Error("failed to mark task completed")
			return
		}
		log.Info("task completed")
	}
}

func (w *Worker) run(ctx context.Context, task *types.Task) (json.RawMessage, error) {
	switch task.Kind {
	case types.TaskTripGeneration:
		return w.runGeneration(ctx, task)
	case types.TaskTripOptimization:
		return w.runOptimization(ctx, task)
	case types.TaskImageAnalysis, types.TaskVoiceProcessing:
		return w.runMedia(ctx, task)
	default:
		return nil, fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

// stage records a progress transition, checks the cancel flag, then runs fn
// with transient upstream failures retried on a constant backoff.
func (w *Worker) stage(ctx context.Context, task *types.Task, progress int, name string, fn func(context.Context) error) error {
	cancelled, err := w.store.CancelRequested(ctx, task.ID)
	if err != nil {
		return err
	}
	if cancelled {
		return errCancelled
	}

	if err := w.store.UpdateProgress(ctx, task.ID, progress, name); err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(uint64(w.cfg.MaxRetries), retry.NewConstant(w.cfg.RetryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) && apiErr.Transient() {
			if ierr := w.store.IncrementAttempts(ctx, task.ID); ierr != nil {
				w.logger.WithError(ierr).WithField("task_id", task.ID).Warn("failed to count attempt")
			}
			return retry.RetryableError(err)
		}
		return err
	})
}
