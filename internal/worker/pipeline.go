package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/travvy-ai/travvy-backend/internal/service/planner"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

// Stage names surface to clients through the task status endpoint.
const (
	stageItinerary = "Generating itinerary"
	stagePlaces    = "Fetching place details"
	stageHotels    = "Finding hotels"
	stageOptimize  = "Optimizing plan"
	stageAnalyze   = "Analyzing media"
)

// runGeneration builds a full itinerary for a freshly created trip and writes
// it back, moving the trip out of the generating state.
func (w *Worker) runGeneration(ctx context.Context, task *types.Task) (json.RawMessage, error) {
	var payload planner.GenerationPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var days []types.DayPlan
	err := w.stage(ctx, task, 10, stageItinerary, func(ctx context.Context) error {
		var err error
		days, err = w.planner.GenerateItinerary(ctx, &payload)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = w.stage(ctx, task, 40, stagePlaces, func(ctx context.Context) error {
		days = w.planner.EnrichPlaces(ctx, payload.Destination, days)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var hotels []types.HotelOption
	err = w.stage(ctx, task, 70, stageHotels, func(ctx context.Context) error {
		var err error
		hotels, err = w.planner.RecommendHotels(ctx, &payload)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = w.stage(ctx, task, 90, stageOptimize, func(ctx context.Context) error {
		days = w.planner.OptimizeItinerary(ctx, days, "time")
		gen := w.planner.GenerationMetadata(task.ID.String())
		_, err := w.trips.ApplyGenerationResult(ctx, payload.TripID, days, hotels, gen)
		return err
	})
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]any{
		"trip_id":     payload.TripID,
		"days":        len(days),
		"hotels":      len(hotels),
		"total_days":  payload.Days,
		"destination": payload.Destination,
	})
}

// runOptimization reorders an existing itinerary and writes it back.
func (w *Worker) runOptimization(ctx context.Context, task *types.Task) (json.RawMessage, error) {
	var payload planner.OptimizationPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	trip, err := w.reader.GetByID(ctx, payload.TripID)
	if err != nil {
		return nil, fmt.Errorf("load trip: %w", err)
	}

	days := trip.Itinerary
	err = w.stage(ctx, task, 50, stageOptimize, func(ctx context.Context) error {
		days = w.planner.OptimizeItinerary(ctx, days, payload.Criteria)
		_, err := w.trips.ApplyGenerationResult(ctx, trip.ID, days, trip.Hotels, trip.AIGeneration)
		return err
	})
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]any{
		"trip_id":  trip.ID,
		"criteria": payload.Criteria,
		"days":     len(days),
	})
}

// runMedia analyzes an uploaded image or voice transcript for destination
// hints. The structured model output is the task result.
func (w *Worker) runMedia(ctx context.Context, task *types.Task) (json.RawMessage, error) {
	var payload planner.MediaPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var result json.RawMessage
	err := w.stage(ctx, task, 50, stageAnalyze, func(ctx context.Context) error {
		var err error
		result, err = w.planner.AnalyzeMedia(ctx, &payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
