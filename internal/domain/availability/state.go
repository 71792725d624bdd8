// Package availability holds the search form of a booking session and the last
// availability result fetched for it.
//
// State is a value: every operation returns the next State and leaves the receiver untouched.
package availability

import (
	"time"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/dateutil"
)

const (
	defaultAdults   = 2
	defaultChildren = 0

	defaultSearchError = "Failed to check availability"
)

type State struct {
	Criteria  booking.SearchCriteria      `json:"criteria"`
	Result    *booking.AvailabilityResult `json:"result,omitempty"`
	IsLoading bool                        `json:"is_loading"`
	Error     string                      `json:"error,omitempty"`
}

func New(propertyID string, now time.Time) State {
	checkIn := dateutil.NextAvailableCheckIn(now)
	return State{
		Criteria: booking.SearchCriteria{
			PropertyID:  propertyID,
			CheckInDate: &checkIn,
			Adults:      defaultAdults,
			Children:    defaultChildren,
		},
	}
}

// invalidate drops the fetched result and any error; every criteria change goes through it.
func (s State) invalidate() State {
	s.Result = nil
	s.Error = ""
	return s
}

func (s State) SetProperty(propertyID string) State {
	s.Criteria.PropertyID = propertyID
	return s.invalidate()
}

// SetCheckInDate derives a check-out of check-in + 1 day when none is set or the current
// one is not strictly after the new check-in.
func (s State) SetCheckInDate(date *time.Time) State {
	s.Criteria.CheckInDate = normalize(date)

	if checkIn := s.Criteria.CheckInDate; checkIn != nil {
		checkOut := s.Criteria.CheckOutDate
		if checkOut == nil || !checkOut.After(*checkIn) {
			suggested := dateutil.SuggestedCheckOut(*checkIn)
			s.Criteria.CheckOutDate = &suggested
		}
	}

	return s.invalidate()
}

func (s State) SetCheckOutDate(date *time.Time) State {
	s.Criteria.CheckOutDate = normalize(date)
	return s.invalidate()
}

// SetGuests does not enforce the picker's upper bounds.
func (s State) SetGuests(adults, children int) State {
	s.Criteria.Adults = adults
	s.Criteria.Children = children
	return s.invalidate()
}

func (s State) BeginSearch() State {
	s.IsLoading = true
	s.Error = ""
	return s
}

func (s State) SearchSucceeded(result booking.AvailabilityResult) State {
	s.Result = &result
	s.IsLoading = false
	s.Error = ""
	return s
}

func (s State) SearchFailed(message string) State {
	if message == "" {
		message = defaultSearchError
	}
	s.IsLoading = false
	s.Error = message
	return s
}

func (s State) ResetAvailability() State {
	return s.invalidate()
}

func (s State) ClearError() State {
	s.Error = ""
	return s
}

func (s State) TotalNights() int {
	if s.Criteria.CheckInDate == nil || s.Criteria.CheckOutDate == nil {
		return 0
	}
	return dateutil.CalculateNights(*s.Criteria.CheckInDate, *s.Criteria.CheckOutDate)
}

func (s State) ValidateDateRange(now time.Time, policy Policy) DateRangeValidation {
	if s.Criteria.CheckInDate == nil || s.Criteria.CheckOutDate == nil {
		return DateRangeValidation{Reason: ReasonMissingDates}
	}
	return ValidateDateRange(*s.Criteria.CheckInDate, *s.Criteria.CheckOutDate, now, policy)
}

func (s State) CanCheckAvailability(now time.Time, policy Policy) bool {
	return s.Criteria.PropertyID != "" &&
		s.Criteria.CheckInDate != nil &&
		s.Criteria.CheckOutDate != nil &&
		s.ValidateDateRange(now, policy).Valid &&
		s.Criteria.Adults >= booking.MinAdults
}

func normalize(date *time.Time) *time.Time {
	if date == nil {
		return nil
	}
	normalized := dateutil.DateOf(*date)
	return &normalized
}
