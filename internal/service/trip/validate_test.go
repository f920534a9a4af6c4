package trip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travvy-ai/travvy-backend/internal/types"
)

func date(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidatePatch(t *testing.T) {
	title := "New title"
	badStatus := types.TripStatus("teleported")
	okStatus := types.TripStatusConfirmed

	cases := []struct {
		name  string
		patch *types.TripPatch
		ok    bool
	}{
		{"nil patch", nil, false},
		{"title only", &types.TripPatch{Title: &title}, true},
		{"inverted dates", &types.TripPatch{Dates: &types.DateRange{
			StartDate: date("2026-06-05"), EndDate: date("2026-06-01"),
		}}, false},
		{"valid dates", &types.TripPatch{Dates: &types.DateRange{
			StartDate: date("2026-06-01"), EndDate: date("2026-06-05"),
		}}, true},
		{"bad travelers", &types.TripPatch{Travelers: &types.Travelers{Adults: 0}}, false},
		{"bad currency", &types.TripPatch{Budget: &types.Budget{Currency: "euro", Total: 100}}, false},
		{"zero budget", &types.TripPatch{Budget: &types.Budget{Currency: "EUR", Total: 0}}, false},
		{"unknown status", &types.TripPatch{Status: &badStatus}, false},
		{"known status", &types.TripPatch{Status: &okStatus}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePatch(tc.patch)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestApplyPatchRecomputesDerivedFields(t *testing.T) {
	trip := &types.Trip{Metadata: types.TripMetadata{Title: "Old"}}

	patch := &types.TripPatch{
		Dates: &types.DateRange{
			StartDate: date("2026-06-01"),
			EndDate:   date("2026-06-08"),
		},
		Travelers: &types.Travelers{Adults: 2, Children: 1},
	}
	applyPatch(trip, patch)

	assert.Equal(t, "Old", trip.Metadata.Title)
	assert.Equal(t, 8, trip.Metadata.Dates.Duration)
	assert.Equal(t, 3, trip.Metadata.Travelers.Total)
}

func TestApplyPatchReplacesItinerary(t *testing.T) {
	trip := &types.Trip{Itinerary: []types.DayPlan{{Day: 1}, {Day: 2}}}

	applyPatch(trip, &types.TripPatch{Itinerary: []types.DayPlan{{Day: 1, Theme: "Rewritten"}}})
	require.Len(t, trip.Itinerary, 1)
	assert.Equal(t, "Rewritten", trip.Itinerary[0].Theme)
}
