package planner

import (
	"time"

	"github.com/google/uuid"

	"github.com/travvy-ai/travvy-backend/internal/types"
)

// GenerationPayload is the task payload for itinerary generation. It is
// sized to the task kind: everything the worker needs without re-reading the
// originating request.
type GenerationPayload struct {
	TripID      uuid.UUID       `json:"trip_id"`
	Destination string          `json:"destination"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	Days        int             `json:"days"`
	Budget      types.Budget    `json:"budget"`
	Travelers   types.Travelers `json:"travelers"`
	Preferences map[string]any  `json:"preferences,omitempty"`
}

// OptimizationPayload is the task payload for itinerary optimization.
type OptimizationPayload struct {
	TripID      uuid.UUID      `json:"trip_id"`
	Criteria    string         `json:"criteria"`
	Constraints map[string]any `json:"constraints,omitempty"`
}

// MediaPayload is the task payload for image analysis and voice processing.
type MediaPayload struct {
	MediaURL string `json:"media_url"`
	Prompt   string `json:"prompt,omitempty"`
	Filename string `json:"filename,omitempty"`
}
