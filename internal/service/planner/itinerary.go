package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/travvy-ai/travvy-backend/internal/ai/gemini"
	"github.com/travvy-ai/travvy-backend/internal/types"
)

const defaultConfidence = 0.85

// GenerateItinerary produces a day-by-day plan for the payload. The result
// always has exactly p.Days entries: extra model output is truncated and
// missing days are filled with an unplanned skeleton so the itinerary length
// matches the requested date range.
func (s *Service) GenerateItinerary(ctx context.Context, p *GenerationPayload) ([]types.DayPlan, error) {
	resp, err := s.ai.GenerateContent(ctx, &gemini.Request{
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: BuildItineraryPrompt(p)}}},
		},
		GenerationConfig: &gemini.GenerationConfig{ResponseMIMEType: "application/json", MaxOutputTokens: 8192},
	})
	if err != nil {
		return nil, fmt.Errorf("generate itinerary: %w", err)
	}

	var days []types.DayPlan
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &days); err != nil {
		return nil, fmt.Errorf("parse itinerary: %w", err)
	}

	return normalizeDays(days, p), nil
}

// EnrichPlaces fills in the identifiers and locations a bare model response
// leaves empty. It is local normalization, not an upstream call.
func (s *Service) EnrichPlaces(ctx context.Context, destination string, days []types.DayPlan) []types.DayPlan {
	for di := range days {
		for ai := range days[di].Activities {
			act := &days[di].Activities[ai]
			if act.ID == "" {
				act.ID = "act_" + uuid.NewString()
			}
			if act.Address == "" {
				act.Address = destination
			}
		}
	}
	return days
}

// RecommendHotels asks the model for stay options.
func (s *Service) RecommendHotels(ctx context.Context, p *GenerationPayload) ([]types.HotelOption, error) {
	resp, err := s.ai.GenerateContent(ctx, &gemini.Request{
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: BuildHotelsPrompt(p)}}},
		},
		GenerationConfig: &gemini.GenerationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return nil, fmt.Errorf("recommend hotels: %w", err)
	}

	var hotels []types.HotelOption
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &hotels); err != nil {
		return nil, fmt.Errorf("parse hotels: %w", err)
	}
	for i := range hotels {
		if hotels[i].ID == "" {
			hotels[i].ID = "hotel_" + uuid.NewString()
		}
	}
	return hotels, nil
}

// OptimizeItinerary orders each day's activities by start time and recomputes
// day budgets. Criteria beyond "time" currently share the same ordering; cost
// re-planning stays with the model-driven generation path.
func (s *Service) OptimizeItinerary(ctx context.Context, days []types.DayPlan, criteria string) []types.DayPlan {
	for di := range days {
		day := &days[di]
		sort.SliceStable(day.Activities, func(i, j int) bool {
			return day.Activities[i].StartTime < day.Activities[j].StartTime
		})

		var total float64
		for _, a := range day.Activities {
			total += a.Cost
		}
		for _, m := range day.Meals {
			total += m.Cost
		}
		for _, t := range day.Transportation {
			total += t.Cost
		}
		day.TotalBudget = total
	}
	return days
}

// AnalyzeMedia runs a single model call over an uploaded image or voice
// reference and returns the raw structured result.
func (s *Service) AnalyzeMedia(ctx context.Context, p *MediaPayload) (json.RawMessage, error) {
	prompt := p.Prompt
	if prompt == "" {
		prompt = "What destination does this suggest? Respond with a JSON object: {\"suggestions\": [...], \"confidence\": 0.0}"
	}
	resp, err := s.ai.GenerateContent(ctx, &gemini.Request{
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: prompt + "\n\nMedia reference: " + p.MediaURL}}},
		},
		GenerationConfig: &gemini.GenerationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return nil, fmt.Errorf("analyze media: %w", err)
	}
	return json.RawMessage(stripFences(resp.Text())), nil
}

// GenerationMetadata describes a finished generation for the trip record.
func (s *Service) GenerationMetadata(conversationID string) types.AIGeneration {
	now := time.Now().UTC()
	return types.AIGeneration{
		ConversationID: conversationID,
		Model:          s.model,
		GeneratedAt:    &now,
		Confidence:     defaultConfidence,
	}
}

// normalizeDays clamps the model output to exactly p.Days entries with
// sequential day numbers and dates.
func normalizeDays(days []types.DayPlan, p *GenerationPayload) []types.DayPlan {
	if len(days) > p.Days {
		days = days[:p.Days]
	}
	for len(days) < p.Days {
		days = append(days, types.DayPlan{Notes: "Unplanned day"})
	}
	for i := range days {
		days[i].Day = i + 1
		days[i].Date = p.StartDate.AddDate(0, 0, i)
		if days[i].Activities == nil {
			days[i].Activities = []types.Activity{}
		}
		if days[i].Meals == nil {
			days[i].Meals = []types.Meal{}
		}
		if days[i].Transportation == nil {
			days[i].Transportation = []types.Transportation{}
		}
	}
	return days
}
