package trip

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/travvy-ai/travvy-backend/internal/types"
)

// ErrValidation marks malformed input. Wrapped errors carry the detail.
var ErrValidation = errors.New("validation failed")

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

const (
	maxBudget    = 100000
	maxAdults    = 20
	maxChildren  = 10
	maxInfants   = 5
	dateLayout   = "2006-01-02"
	minDestLen   = 2
	maxDestLen   = 100
	maxTripDays  = 60
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func validateCreate(req *CreateRequest) (start, end time.Time, err error) {
	if len(req.Destination) < minDestLen || len(req.Destination) > maxDestLen {
		return start, end, validationError("destination must be %d-%d characters", minDestLen, maxDestLen)
	}

	start, err = time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return start, end, validationError("start_date must be YYYY-MM-DD")
	}
	end, err = time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return start, end, validationError("end_date must be YYYY-MM-DD")
	}
	if !end.After(start) {
		return start, end, validationError("end date must be after start date")
	}
	if dayCount(start, end) > maxTripDays {
		return start, end, validationError("trip cannot exceed %d days", maxTripDays)
	}

	if req.Budget <= 0 || req.Budget > maxBudget {
		return start, end, validationError("budget must be in (0, %d]", maxBudget)
	}
	if !currencyPattern.MatchString(req.Currency) {
		return start, end, validationError("currency must be a three-letter ISO code")
	}
	if err := validateTravelers(req.Travelers); err != nil {
		return start, end, err
	}
	return start, end, nil
}

func validateTravelers(t types.Travelers) error {
	if t.Adults < 1 || t.Adults > maxAdults {
		return validationError("adults must be in [1, %d]", maxAdults)
	}
	if t.Children < 0 || t.Children > maxChildren {
		return validationError("children must be in [0, %d]", maxChildren)
	}
	if t.Infants < 0 || t.Infants > maxInfants {
		return validationError("infants must be in [0, %d]", maxInfants)
	}
	return nil
}

func validatePatch(patch *types.TripPatch) error {
	if patch == nil {
		return validationError("empty patch")
	}
	if patch.Dates != nil {
		if !patch.Dates.EndDate.After(patch.Dates.StartDate) {
			return validationError("end date must be after start date")
		}
	}
	if patch.Travelers != nil {
		if err := validateTravelers(*patch.Travelers); err != nil {
			return err
		}
	}
	if patch.Budget != nil {
		if patch.Budget.Total <= 0 || patch.Budget.Total > maxBudget {
			return validationError("budget must be in (0, %d]", maxBudget)
		}
		if !currencyPattern.MatchString(patch.Budget.Currency) {
			return validationError("currency must be a three-letter ISO code")
		}
	}
	if patch.Status != nil && !types.ValidTripStatus(*patch.Status) {
		return validationError("unknown status %q", *patch.Status)
	}
	return nil
}

// applyPatch merges non-nil patch fields into the trip document. The store's
// conditional write guarantees the base the patch was applied to is still
// current when the write commits.
func applyPatch(trip *types.Trip, patch *types.TripPatch) {
	if patch.Title != nil {
		trip.Metadata.Title = *patch.Title
	}
	if patch.Description != nil {
		trip.Metadata.Description = *patch.Description
	}
	if patch.Dates != nil {
		d := *patch.Dates
		d.Duration = dayCount(d.StartDate, d.EndDate)
		trip.Metadata.Dates = d
	}
	if patch.Travelers != nil {
		trip.Metadata.Travelers = withTotal(*patch.Travelers)
	}
	if patch.Budget != nil {
		trip.Metadata.Budget = *patch.Budget
	}
	if patch.Status != nil {
		trip.Status = *patch.Status
	}
	if patch.Itinerary != nil {
		trip.Itinerary = patch.Itinerary
	}
}
