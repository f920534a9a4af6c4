package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskQueue is a Redis list used as a FIFO task queue. The server side pushes
// task ids; workers block-pop them.
type TaskQueue struct {
	client *Client
	name   string
}

// NewTaskQueue creates a queue over the named Redis list.
func NewTaskQueue(client *Client, name string) *TaskQueue {
	return &TaskQueue{client: client, name: name}
}

// Push enqueues a task id.
func (q *TaskQueue) Push(ctx context.Context, id uuid.UUID) error {
	return q.client.PushTask(ctx, q.name, id.String())
}

// Pop blocks up to timeout for the next task id. An empty queue returns
// ErrEmptyQueue.
func (q *TaskQueue) Pop(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	raw, err := q.client.PopTask(ctx, q.name, timeout)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(raw)
}
