package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/travvy-ai/travvy-backend/internal/cache/redis"
)

// Queue is a channel-backed task queue with the blocking-pop contract of the
// Redis queue.
type Queue struct {
	ch chan uuid.UUID
}

// NewQueue creates a queue with room for size pending ids.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan uuid.UUID, size)}
}

// Push enqueues a task id.
func (q *Queue) Push(ctx context.Context, id uuid.UUID) error {
	select {
	case q.ch <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks up to timeout for the next id, returning redis.ErrEmptyQueue on
// timeout like the real queue.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case id := <-q.ch:
		return id, nil
	case <-timer.C:
		return uuid.Nil, redis.ErrEmptyQueue
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// Len reports the number of queued ids.
func (q *Queue) Len() int {
	return len(q.ch)
}
