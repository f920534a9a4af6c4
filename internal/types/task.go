package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskKind identifies what a background task does.
type TaskKind string

const (
	TaskTripGeneration   TaskKind = "trip_generation"
	TaskTripOptimization TaskKind = "trip_optimization"
	TaskImageAnalysis    TaskKind = "image_analysis"
	TaskVoiceProcessing  TaskKind = "voice_processing"
)

// TaskStatus represents the lifecycle state of a background task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether no further transitions can occur.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Task represents a long-running operation submitted for asynchronous
// execution. It is created on submission, mutated only by the worker
// executing it, and polled read-only by clients until it reaches a terminal
// state. Result is set only on completion; Error only on failure.
type Task struct {
	ID              uuid.UUID       `json:"id"`
	Kind            TaskKind        `json:"kind"`
	TripID          *uuid.UUID      `json:"trip_id,omitempty"`
	UserID          uuid.UUID       `json:"user_id"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Status          TaskStatus      `json:"status"`
	Progress        int             `json:"progress"`
	Stage           string          `json:"stage,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           *string         `json:"error,omitempty"`
	Attempts        int             `json:"attempts"`
	CancelRequested bool            `json:"cancel_requested"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
