// Package bookingflow sequences a guest through room selection, guest details,
// preferences and review up to a confirmed reservation.
//
// The machine never advances on its own: the caller checks CanProceedToNextStep and
// moves with SetStep/Next, except for the two transitions owned by the machine itself
// (SetSelectedRoom into guest-info and a successful submit into confirmation).
package bookingflow

import (
	"errors"
	"slices"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
)

type Step string

const (
	StepRoomSelection Step = "room-selection"
	StepGuestInfo     Step = "guest-info"
	StepPreferences   Step = "preferences"
	StepReview        Step = "review"
	StepConfirmation  Step = "confirmation"
)

var steps = []Step{StepRoomSelection, StepGuestInfo, StepPreferences, StepReview, StepConfirmation}

func Steps() []Step {
	return slices.Clone(steps)
}

func (s Step) Index() int {
	return slices.Index(steps, s)
}

func (s Step) IsValid() bool {
	return s.Index() >= 0
}

var (
	ErrUnknownStep               = errors.New("unknown booking step")
	ErrStepGuard                 = errors.New("current step is not complete")
	ErrStepSkipped               = errors.New("booking steps cannot be skipped")
	ErrSubmitRequired            = errors.New("confirmation is reached by submitting the booking")
	ErrBookingConfirmed          = errors.New("booking is already confirmed, start a new booking instead")
	ErrMissingBookingInformation = errors.New("missing booking information")
	ErrTermsNotAccepted          = errors.New("terms and conditions not accepted")
	ErrNoReservation             = errors.New("no reservation has been made yet")
	ErrReservationCancelled      = errors.New("reservation is already cancelled")
)

const (
	missingBookingInformationMessage = "Missing booking information"
	termsNotAcceptedMessage          = "You must agree to the terms and conditions"
	defaultSubmitError               = "Failed to create reservation"
	defaultCancelError               = "Failed to cancel reservation"
)

type State struct {
	CurrentStep     Step                    `json:"current_step"`
	SelectedRoom    *booking.RoomOffer      `json:"selected_room,omitempty"`
	BookingRequest  *booking.BookingRequest `json:"booking_request,omitempty"`
	Guest           booking.GuestProfile    `json:"guest"`
	GuestErrors     FieldErrors             `json:"guest_errors,omitempty"`
	SpecialRequests string                  `json:"special_requests"`
	AgreedToTerms   bool                    `json:"agreed_to_terms"`
	Reservation     *booking.Reservation    `json:"reservation,omitempty"`
	IsLoading       bool                    `json:"is_loading"`
	Error           string                  `json:"error,omitempty"`
}

func New() State {
	return State{
		CurrentStep: StepRoomSelection,
		Guest: booking.GuestProfile{
			IDType: booking.IDTypePassport,
		},
	}
}

// SetSelectedRoom records the offer and the search it came from, then moves to guest-info.
// A reservation and terms agreement from an earlier room are dropped.
func (s State) SetSelectedRoom(room booking.RoomOffer, criteria booking.SearchCriteria) (State, error) {
	request, err := booking.NewBookingRequest(criteria, room.RoomTypeID)
	if err != nil {
		return s, err
	}

	s.SelectedRoom = &room
	s.BookingRequest = &request
	s.Reservation = nil
	s.AgreedToTerms = false
	s.CurrentStep = StepGuestInfo
	s.Error = ""
	return s, nil
}

// UpdateGuest merges the update into the profile, address fields one by one, and drops
// stored field errors for every field it touched.
func (s State) UpdateGuest(update GuestUpdate) State {
	var touched []string
	s.Guest, touched = update.apply(s.Guest)
	s.GuestErrors = s.GuestErrors.without(touched)
	s.Error = ""
	return s
}

func (s State) UpdateAddress(update AddressUpdate) State {
	return s.UpdateGuest(GuestUpdate{Address: &update})
}

func (s State) SetSpecialRequests(requests string) State {
	s.SpecialRequests = requests
	s.Error = ""
	return s
}

func (s State) SetAgreedToTerms(agreed bool) State {
	s.AgreedToTerms = agreed
	s.Error = ""
	return s
}

// SetStep allows any backward move and a forward move of exactly one step when the
// current step's guard holds. Leaving guest-info forward re-runs full guest validation
// and stores the per-field messages even when the move is refused.
func (s State) SetStep(target Step) (State, error) {
	if !target.IsValid() {
		return s, ErrUnknownStep
	}

	current := s.CurrentStepIndex()
	next := target.Index()

	switch {
	case s.CurrentStep == StepConfirmation && target != StepConfirmation:
		return s, ErrBookingConfirmed
	case next <= current:
		s.CurrentStep = target
		s.Error = ""
		return s, nil
	case next > current+1:
		return s, ErrStepSkipped
	case target == StepConfirmation:
		return s, ErrSubmitRequired
	}

	if s.CurrentStep == StepGuestInfo {
		s.GuestErrors = ValidateGuest(s.Guest)
	}
	if !s.CanProceedToNextStep() {
		return s, ErrStepGuard
	}

	s.CurrentStep = target
	s.Error = ""
	return s, nil
}

func (s State) Next() (State, error) {
	index := s.CurrentStepIndex()
	if index < 0 || index+1 >= len(steps) {
		return s, ErrStepGuard
	}
	return s.SetStep(steps[index+1])
}

func (s State) Back() (State, error) {
	index := s.CurrentStepIndex()
	if index <= 0 {
		return s, nil
	}
	return s.SetStep(steps[index-1])
}

// BeginSubmit checks the submit preconditions and marks the flow as loading. A failed
// precondition is written to Error and no request is returned.
func (s State) BeginSubmit() (State, booking.ReservationRequest, error) {
	if s.BookingRequest == nil || s.SelectedRoom == nil {
		s.Error = missingBookingInformationMessage
		return s, booking.ReservationRequest{}, ErrMissingBookingInformation
	}
	if !s.AgreedToTerms {
		s.Error = termsNotAcceptedMessage
		return s, booking.ReservationRequest{}, ErrTermsNotAccepted
	}

	request := *s.BookingRequest
	request.SpecialRequests = s.SpecialRequests

	s.IsLoading = true
	s.Error = ""
	return s, booking.ReservationRequest{Booking: request, Guest: s.Guest}, nil
}

func (s State) SubmitSucceeded(reservation booking.Reservation) State {
	s.Reservation = &reservation
	s.CurrentStep = StepConfirmation
	s.IsLoading = false
	s.Error = ""
	return s
}

func (s State) SubmitFailed(message string) State {
	if message == "" {
		message = defaultSubmitError
	}
	s.IsLoading = false
	s.Error = message
	return s
}

// BeginCancellation marks the flow as loading and returns the id of the reservation to cancel.
func (s State) BeginCancellation() (State, string, error) {
	if s.Reservation == nil {
		return s, "", ErrNoReservation
	}
	if s.Reservation.Status == booking.ReservationCancelled {
		return s, "", ErrReservationCancelled
	}
	s.IsLoading = true
	s.Error = ""
	return s, s.Reservation.ID, nil
}

// ReservationUpdated replaces the reservation snapshot, e.g. after a cancellation.
func (s State) ReservationUpdated(reservation booking.Reservation) State {
	s.Reservation = &reservation
	s.IsLoading = false
	s.Error = ""
	return s
}

func (s State) CancellationFailed(message string) State {
	if message == "" {
		message = defaultCancelError
	}
	s.IsLoading = false
	s.Error = message
	return s
}

func (s State) Reset() State {
	return New()
}

func (s State) ClearError() State {
	s.Error = ""
	return s
}

func (s State) IsGuestInfoValid() bool {
	return IsGuestValid(s.Guest)
}

func (s State) CanProceedToNextStep() bool {
	switch s.CurrentStep {
	case StepRoomSelection:
		return s.SelectedRoom != nil && s.BookingRequest != nil
	case StepGuestInfo:
		return s.IsGuestInfoValid()
	case StepPreferences:
		return true
	case StepReview:
		return s.AgreedToTerms
	default:
		return false
	}
}

func (s State) TotalSteps() int {
	return len(steps)
}

func (s State) CurrentStepIndex() int {
	return s.CurrentStep.Index()
}
