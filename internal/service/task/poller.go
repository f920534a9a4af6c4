package task

import (
	"context"
	"errors"
	"time"

	"github.com/travvy-ai/travvy-backend/internal/types"
)

// ErrPollExhausted is returned when the attempt bound is reached before the
// task goes terminal.
var ErrPollExhausted = errors.New("polling attempts exhausted")

// Poller repeatedly fetches a task on a fixed interval until it reaches a
// terminal state, the attempt bound is hit, or the context ends. The sleep
// function is injectable so tests run without real delays.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int

	// Sleep waits for d or until ctx ends. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a Poller with the default timer-based sleep.
func NewPoller(interval time.Duration, maxAttempts int) *Poller {
	return &Poller{Interval: interval, MaxAttempts: maxAttempts}
}

// Wait polls fetch until the task is terminal. It returns the terminal task;
// callers must still inspect Status — a terminal task may have failed.
func (p *Poller) Wait(ctx context.Context, fetch func(context.Context) (*types.Task, error)) (*types.Task, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		task, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if task.Status.Terminal() {
			return task, nil
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return nil, err
		}
	}
	return nil, ErrPollExhausted
}

// Watch polls like Wait but delivers every observation to observe, including
// the terminal one. Used by the websocket status stream.
func (p *Poller) Watch(ctx context.Context, fetch func(context.Context) (*types.Task, error), observe func(*types.Task)) (*types.Task, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		task, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		observe(task)
		if task.Status.Terminal() {
			return task, nil
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return nil, err
		}
	}
	return nil, ErrPollExhausted
}

func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
