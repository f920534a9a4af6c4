package task

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travvy-ai/travvy-backend/internal/storage/memory"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService() (*Service, *memory.TaskStore, *memory.Queue) {
	store := memory.NewTaskStore()
	queue := memory.NewQueue(16)
	return NewService(store, queue, testLogger()), store, queue
}

func TestSubmitReturnsBeforeExecution(t *testing.T) {
	svc, _, queue := newTestService()
	userID := uuid.New()
	tripID := uuid.New()

	// Nothing consumes the queue; submission must not wait for a worker.
	start := time.Now()
	task, err := svc.Submit(context.Background(), types.TaskTripGeneration, userID, &tripID, map[string]any{"destination": "Paris"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, types.TaskPending, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Empty(t, task.Stage)
	assert.False(t, task.Status.Terminal())
	assert.Equal(t, 1, queue.Len())
}

func TestFreshTaskNeverTerminal(t *testing.T) {
	svc, _, _ := newTestService()
	userID := uuid.New()

	task, err := svc.Submit(context.Background(), types.TaskImageAnalysis, userID, nil, map[string]any{"media_url": "https://example.com/x.jpg"})
	require.NoError(t, err)

	// No stage transition has been recorded yet.
	got, err := svc.Get(context.Background(), userID, task.ID)
	require.NoError(t, err)
	assert.False(t, got.Status.Terminal())
	assert.Nil(t, got.Result)
	assert.Nil(t, got.Error)
}

func TestGetRequiresSubmitter(t *testing.T) {
	svc, _, _ := newTestService()
	task, err := svc.Submit(context.Background(), types.TaskTripGeneration, uuid.New(), nil, nil)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancelSetsFlag(t *testing.T) {
	svc, store, _ := newTestService()
	userID := uuid.New()
	task, err := svc.Submit(context.Background(), types.TaskTripGeneration, userID, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), userID, task.ID))

	requested, err := store.CancelRequested(context.Background(), task.ID)
	require.NoError(t, err)
	assert.True(t, requested)
}

func TestCancelTerminalTaskFails(t *testing.T) {
	svc, store, _ := newTestService()
	userID := uuid.New()
	task, err := svc.Submit(context.Background(), types.TaskTripGeneration, userID, nil, nil)
	require.NoError(t, err)

	_, err = store.Claim(context.Background(), task.ID)
	require.NoError(t, err)
	require.NoError(t, store.Complete(context.Background(), task.ID, nil))

	assert.ErrorIs(t, svc.Cancel(context.Background(), userID, task.ID), ErrTerminal)
}

func TestLatestForTrip(t *testing.T) {
	svc, _, _ := newTestService()
	userID := uuid.New()
	tripID := uuid.New()

	_, err := svc.Submit(context.Background(), types.TaskTripGeneration, userID, &tripID, nil)
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), types.TaskTripOptimization, userID, &tripID, nil)
	require.NoError(t, err)

	latest, err := svc.LatestForTrip(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}
