// Package session ties the search, booking flow and checkout state of one guest together.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/availability"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/bookingflow"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/checkout"
)

//go:generate mockgen -destination=../../mocks/session_mocks.go -package=mocks . Repository

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID        string             `json:"id"`
	Search    availability.State `json:"search"`
	Flow      bookingflow.State  `json:"flow"`
	Checkout  checkout.State     `json:"checkout"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func New(id, propertyID string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Search:    availability.New(propertyID, now),
		Flow:      bookingflow.New(),
		Checkout:  checkout.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ClearErrors clears the error of every state holder.
func (s *Session) ClearErrors() {
	s.Search = s.Search.ClearError()
	s.Flow = s.Flow.ClearError()
	s.Checkout = s.Checkout.ClearError()
}

// Busy reports whether any holder is waiting on a remote call.
func (s *Session) Busy() bool {
	return s.Search.IsLoading || s.Flow.IsLoading || s.Checkout.IsProcessing
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Summary carries the derived values clients need to render a session.
type Summary struct {
	TotalNights          int                              `json:"total_nights"`
	DateRange            availability.DateRangeValidation `json:"date_range"`
	CanCheckAvailability bool                             `json:"can_check_availability"`
	CurrentStepIndex     int                              `json:"current_step_index"`
	TotalSteps           int                              `json:"total_steps"`
	CanProceedToNextStep bool                             `json:"can_proceed_to_next_step"`
	IsGuestInfoValid     bool                             `json:"is_guest_info_valid"`
	IsPaymentValid       bool                             `json:"is_payment_details_valid"`
	IsBillingValid       bool                             `json:"is_billing_address_valid"`
	CanProcessPayment    bool                             `json:"can_process_payment"`
}

func (s *Session) Summarize(now time.Time, policy availability.Policy) Summary {
	return Summary{
		TotalNights:          s.Search.TotalNights(),
		DateRange:            s.Search.ValidateDateRange(now, policy),
		CanCheckAvailability: s.Search.CanCheckAvailability(now, policy),
		CurrentStepIndex:     s.Flow.CurrentStepIndex(),
		TotalSteps:           s.Flow.TotalSteps(),
		CanProceedToNextStep: s.Flow.CanProceedToNextStep(),
		IsGuestInfoValid:     s.Flow.IsGuestInfoValid(),
		IsPaymentValid:       s.Checkout.IsPaymentDetailsValid(),
		IsBillingValid:       s.Checkout.IsBillingAddressValid(),
		CanProcessPayment:    s.Checkout.CanProcessPayment(),
	}
}

type Repository interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
