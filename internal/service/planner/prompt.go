package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConversationSystemPrompt frames the chat assistant. The model must answer
// with a single JSON object so suggested actions and extracted preferences
// can be parsed reliably.
const ConversationSystemPrompt = `You are Travvy, an AI travel planning assistant.
Help the user plan trips: destinations, dates, budgets, activities and logistics.
Be concrete and concise.

Respond with a single JSON object, nothing else:
{
  "reply": "your answer to the user",
  "suggested_actions": ["short next step", ...],
  "preferences": {"extracted preference key": "value"},
  "planning_stage": "one of: discovery, dates, budget, itinerary, booking"
}

Only include preferences the user actually stated in this message.`

// ItineraryPrompt asks for a full day-by-day plan as JSON.
const itineraryPromptTemplate = `Plan a %d-day trip to %s for %d adults, %d children and %d infants.
Total budget: %.0f %s. The trip runs %s to %s.

Respond with a JSON array of day objects, nothing else. One object per day, exactly %d objects:
{
  "day": 1,
  "theme": "short theme",
  "activities": [{"name": "...", "description": "...", "start_time": "09:00", "end_time": "11:00", "cost": 25, "category": "sightseeing"}],
  "meals": [{"type": "breakfast|lunch|dinner", "restaurant": "...", "cuisine": "...", "cost": 15}],
  "transportation": [{"from": "...", "to": "...", "method": "metro|walk|taxi|train", "cost": 3, "duration_minutes": 20}],
  "notes": "optional"
}`

// HotelsPrompt asks for stay recommendations as JSON.
const hotelsPromptTemplate = `Recommend up to 5 places to stay in %s for a budget of %.0f %s total over %d nights.

Respond with a JSON array, nothing else:
[{"name": "...", "description": "...", "rating": 4.3, "price_per_night": 120, "amenities": ["wifi"]}]`

// BuildItineraryPrompt renders the generation prompt for a payload.
func BuildItineraryPrompt(p *GenerationPayload) string {
	return fmt.Sprintf(itineraryPromptTemplate,
		p.Days, p.Destination,
		p.Travelers.Adults, p.Travelers.Children, p.Travelers.Infants,
		p.Budget.Total, p.Budget.Currency,
		p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"),
		p.Days,
	)
}

// BuildHotelsPrompt renders the hotel recommendation prompt for a payload.
func BuildHotelsPrompt(p *GenerationPayload) string {
	nights := p.Days - 1
	if nights < 1 {
		nights = 1
	}
	return fmt.Sprintf(hotelsPromptTemplate, p.Destination, p.Budget.Total, p.Budget.Currency, nights)
}

// BuildConversationSystem appends the accumulated context so the model sees
// prior extracted preferences and the planning stage.
func BuildConversationSystem(context map[string]any) string {
	if len(context) == 0 {
		return ConversationSystemPrompt
	}
	data, err := json.Marshal(context)
	if err != nil {
		return ConversationSystemPrompt
	}
	var sb strings.Builder
	sb.WriteString(ConversationSystemPrompt)
	sb.WriteString("\n\nKnown planning context:\n")
	sb.Write(data)
	return sb.String()
}
