package types

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus represents the lifecycle state of a trip.
type TripStatus string

const (
	TripStatusPlanning   TripStatus = "planning"
	TripStatusGenerating TripStatus = "generating"
	TripStatusConfirmed  TripStatus = "confirmed"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

// ValidTripStatus reports whether s is a known trip status.
func ValidTripStatus(s TripStatus) bool {
	switch s {
	case TripStatusPlanning, TripStatusGenerating, TripStatusConfirmed,
		TripStatusInProgress, TripStatusCompleted, TripStatusCancelled:
		return true
	}
	return false
}

// CollaboratorRole governs what a collaborator may do with a trip.
type CollaboratorRole string

const (
	RoleOwner  CollaboratorRole = "owner"
	RoleEditor CollaboratorRole = "editor"
	RoleViewer CollaboratorRole = "viewer"
)

// Collaborator is a user's membership record on a trip.
type Collaborator struct {
	Role        CollaboratorRole `json:"role"`
	JoinedAt    time.Time        `json:"joined_at"`
	Permissions []string         `json:"permissions,omitempty"`
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Destination describes where a trip goes.
type Destination struct {
	Name        string    `json:"name"`
	PlaceID     string    `json:"place_id,omitempty"`
	Coordinates *GeoPoint `json:"coordinates,omitempty"`
	Country     string    `json:"country,omitempty"`
	City        string    `json:"city,omitempty"`
}

// DateRange holds the trip dates. Duration is the day count, inclusive of the
// start day.
type DateRange struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Duration  int       `json:"duration"`
	Flexible  bool      `json:"flexible"`
}

// Travelers holds traveler counts for a trip.
type Travelers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Total    int `json:"total"`
}

// BudgetBreakdown splits a budget by spending category.
type BudgetBreakdown struct {
	Accommodation  float64 `json:"accommodation"`
	Transportation float64 `json:"transportation"`
	Food           float64 `json:"food"`
	Activities     float64 `json:"activities"`
	Miscellaneous  float64 `json:"miscellaneous"`
}

// Budget is the total trip budget with an ISO 4217 currency code.
type Budget struct {
	Currency  string          `json:"currency"`
	Total     float64         `json:"total"`
	Breakdown BudgetBreakdown `json:"breakdown"`
}

// TripMetadata carries the human-facing planning fields of a trip.
type TripMetadata struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Destination Destination `json:"destination"`
	Dates       DateRange   `json:"dates"`
	Travelers   Travelers   `json:"travelers"`
	Budget      Budget      `json:"budget"`
}

// Activity is a single planned activity in a day.
type Activity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Location    *GeoPoint `json:"location,omitempty"`
	Address     string   `json:"address,omitempty"`
	StartTime   string   `json:"start_time,omitempty"`
	EndTime     string   `json:"end_time,omitempty"`
	Cost        float64  `json:"cost,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Meal is a planned meal in a day.
type Meal struct {
	Type       string `json:"type"`
	Restaurant string `json:"restaurant"`
	Cuisine    string `json:"cuisine,omitempty"`
	Cost       float64 `json:"cost,omitempty"`
}

// Transportation is a leg between two locations within a day.
type Transportation struct {
	From            string  `json:"from"`
	To              string  `json:"to"`
	Method          string  `json:"method"`
	Cost            float64 `json:"cost,omitempty"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
}

// DayPlan is a single day of an itinerary.
type DayPlan struct {
	Day            int              `json:"day"`
	Date           time.Time        `json:"date"`
	Theme          string           `json:"theme,omitempty"`
	Activities     []Activity       `json:"activities"`
	Meals          []Meal           `json:"meals"`
	Transportation []Transportation `json:"transportation"`
	TotalBudget    float64          `json:"total_budget,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

// HotelOption is a recommended place to stay.
type HotelOption struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	PricePerNight float64  `json:"price_per_night,omitempty"`
	Amenities     []string `json:"amenities,omitempty"`
}

// AIGeneration records how a trip's itinerary was produced.
type AIGeneration struct {
	ConversationID string     `json:"conversation_id,omitempty"`
	Model          string     `json:"model,omitempty"`
	GeneratedAt    *time.Time `json:"generated_at,omitempty"`
	Confidence     float64    `json:"confidence,omitempty"`
}

// Trip is the mutable planning document. Version is the optimistic-concurrency
// counter: every accepted write increments it by exactly one.
type Trip struct {
	ID            uuid.UUID                   `json:"id"`
	CreatedBy     uuid.UUID                   `json:"created_by"`
	Collaborators map[string]Collaborator     `json:"collaborators"`
	Metadata      TripMetadata                `json:"metadata"`
	AIGeneration  AIGeneration                `json:"ai_generation"`
	Itinerary     []DayPlan                   `json:"itinerary"`
	Hotels        []HotelOption               `json:"hotels"`
	Status        TripStatus                  `json:"status"`
	Version       int                         `json:"version"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
	DeletedAt     *time.Time                  `json:"deleted_at,omitempty"`
}

// RoleOf returns the collaborator role for a user, if any.
func (t *Trip) RoleOf(userID uuid.UUID) (CollaboratorRole, bool) {
	c, ok := t.Collaborators[userID.String()]
	if !ok {
		return "", false
	}
	return c.Role, true
}

// CanView reports whether the user may read the trip.
func (t *Trip) CanView(userID uuid.UUID) bool {
	_, ok := t.RoleOf(userID)
	return ok
}

// CanEdit reports whether the user may mutate the trip.
func (t *Trip) CanEdit(userID uuid.UUID) bool {
	role, ok := t.RoleOf(userID)
	return ok && (role == RoleOwner || role == RoleEditor)
}

// IsOwner reports whether the user owns the trip.
func (t *Trip) IsOwner(userID uuid.UUID) bool {
	role, ok := t.RoleOf(userID)
	return ok && role == RoleOwner
}

// TripPatch is a partial update to a trip. Nil fields are left untouched.
type TripPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Dates       *DateRange  `json:"dates,omitempty"`
	Travelers   *Travelers  `json:"travelers,omitempty"`
	Budget      *Budget     `json:"budget,omitempty"`
	Status      *TripStatus `json:"status,omitempty"`
	Itinerary   []DayPlan   `json:"itinerary,omitempty"`
}
