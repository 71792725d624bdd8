package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/bookingflow"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/checkout"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/roomfilter"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
)

var (
	ErrInvalidOccupancy = errors.New("adults and children cannot be negative")
	ErrNoSearchResult   = errors.New("check availability before selecting a room")
	ErrRoomNotOffered   = errors.New("room type is not part of the availability result")
	ErrRoomUnavailable  = errors.New("room type is not available for the selected dates")
	ErrUnknownDirection = errors.New("direction must be next or back")
)

type SearchUpdate struct {
	PropertyID   *string
	CheckInDate  *time.Time
	CheckOutDate *time.Time
	Adults       *int
	Children     *int
}

type PreferencesUpdate struct {
	SpecialRequests *string
	AgreedToTerms   *bool
}

type Direction string

const (
	DirectionNext Direction = "next"
	DirectionBack Direction = "back"
)

// StepChange moves the flow either to Step or one step in Direction.
type StepChange struct {
	Step      bookingflow.Step
	Direction Direction
}

type PaymentUpdate struct {
	Method  *booking.PaymentMethod
	Details *checkout.PaymentDetailsUpdate
	Billing *checkout.BillingAddressUpdate
}

type RoomList struct {
	Rooms   []booking.RoomOffer `json:"rooms"`
	Options roomfilter.Options  `json:"options"`
	Filters roomfilter.Filters  `json:"filters"`
}

// ManageSessionUseCase covers every session change that needs no remote call.
type ManageSessionUseCase struct {
	guard  *sessionGuard
	logger *slog.Logger
}

func NewManageSessionUseCase(
	sessions session.Repository,
	locks booking.LockRepository,
	settings Settings,
	clock Clock,
	logger *slog.Logger,
) *ManageSessionUseCase {
	return &ManageSessionUseCase{
		guard:  newSessionGuard(sessions, locks, settings, clock, logger),
		logger: logger,
	}
}

func (uc *ManageSessionUseCase) Create(ctx context.Context, propertyID string) (*session.Session, error) {
	sess := session.New(uuid.NewString(), propertyID, uc.guard.now())
	if err := uc.guard.save(ctx, sess); err != nil {
		return nil, err
	}

	uc.logger.Info("Booking session created", "session_id", sess.ID, "property_id", propertyID)
	return sess, nil
}

func (uc *ManageSessionUseCase) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	return uc.guard.sessions.Get(ctx, sessionID)
}

func (uc *ManageSessionUseCase) Delete(ctx context.Context, sessionID string) error {
	release, err := uc.guard.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	if err := uc.guard.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}

	uc.logger.Info("Booking session deleted", "session_id", sessionID)
	return nil
}

// Summary evaluates the derived fields of sess at the current property time.
func (uc *ManageSessionUseCase) Summary(sess *session.Session) session.Summary {
	return sess.Summarize(uc.guard.now(), uc.guard.settings.Policy)
}

func (uc *ManageSessionUseCase) UpdateSearch(ctx context.Context, sessionID string, update SearchUpdate) (*session.Session, error) {
	return uc.guard.mutate(ctx, sessionID, func(sess *session.Session) error {
		search := sess.Search

		if update.PropertyID != nil {
			search = search.SetProperty(*update.PropertyID)
		}
		if update.CheckInDate != nil {
			search = search.SetCheckInDate(update.CheckInDate)
		}
		if update.CheckOutDate != nil {
			search = search.SetCheckOutDate(update.CheckOutDate)
		}
		if update.Adults != nil || update.Children != nil {
			adults, children := search.Criteria.Adults, search.Criteria.Children
			if update.Adults != nil {
				adults = *update.Adults
			}
			if update.Children != nil {
				children = *update.Children
			}
			if adults < 0 || children < 0 {
				return invalid(ErrInvalidOccupancy)
			}
			search = search.SetGuests(adults, children)
		}

		sess.Search = search
		return nil
	})
}

func (uc *ManageSessionUseCase) ResetAvailability(ctx context.Context, sessionID string) (*session.Session, error) {
	return uc.guard.mutate(ctx, sessionID, func(sess *session.Session) error {
		sess.Search = sess.Search.ResetAvailability()
		return nil
	})
}

// ListRooms filters and sorts the offers of the last availability result.
func (uc *ManageSessionUseCase) ListRooms(ctx context.Context, sessionID string, filters roomfilter.Filters) (*RoomList, error) {
	if err := filters.Validate(); err != nil {
		return nil, invalid(err)
	}

	sess, err := uc.guard.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var offers []booking.RoomOffer
	if sess.Search.Result != nil {
		offers = sess.Search.Result.Rooms
	}

	return &RoomList{
		Rooms:   filters.Apply(offers),
		Options: roomfilter.OptionsFor(offers),
		Filters: filters,
	}, nil
}

func (uc *ManageSessionUseCase) SelectRoom(ctx context.Context, sessionID, roomTypeID string) (*session.Session, error) {
	return uc.guard.mutate(ctx, sessionID, func(sess *session.Session) error {
		if sess.Search.Result == nil {
			return invalid(ErrNoSearchResult)
		}

		room, ok := sess.Search.Result.FindRoom(roomTypeID)
		if !ok {
			return invalid(ErrRoomNotOffered)
		}
		if !room.IsAvailable || room.AvailableCount == 0 {
			return invalid(ErrRoomUnavailable)
		}

		flow, err := sess.Flow.SetSelectedRoom(room, sess.Search.Criteria)
		if err != nil {
			return invalid(err)
		}

		sess.Flow = flow
		return nil
	})
}

func (uc *ManageSessionUseCase) UpdateGuest(ctx context.Context, sessionID string, update bookingflow.GuestUpdate) (*session.Session, error) {
	return uc.guard.mutate(ctx, sessionID, func(sess *session.Session) error {
		sess.Flow = sess.Flow.UpdateGuest(update)
		return nil
	})
}

func (uc *ManageSessionUseCase) UpdatePreferences(ctx context.Context, sessionID string, update PreferencesUpdate) (*session.Session, error) {
	return uc.guard.mutate(ctx, sessionID, func(sess *session.Session) error {
		if update.SpecialRequests != nil {
			sess.Flow = sess.Flow.SetSpecialRequests(*update.SpecialRequests)
		}
		if update.AgreedToTerms != nil {
			sess.Flow = sess.Flow.SetAgreedToTerms(*update.AgreedToTerms)
		}
		return nil
	})
}

// ChangeStep stores the resulting flow even when the move is refused, so field errors
// found while leaving guest-info reach the client together with the refusal.
func (uc *ManageSessionUseCase) ChangeStep(ctx context.Context, sessionID string, change StepChange) (*session.Session, error) {
	release, err := uc.guard.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := uc.guard.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var flow bookingflow.State
	var stepErr error
	switch {
	case change.Step != "":
		flow, stepErr = sess.Flow.SetStep(change.Step)
	case change.Direction == DirectionNext:
		flow, stepErr = sess.Flow.Next()
	case change.Direction == DirectionBack:
		flow, stepErr = sess.Flow.Back()
	default:
		return nil, invalid(ErrUnknownDirection)
	}

	sess.Flow = flow
	if err := uc.guard.save(ctx, sess); err != nil {
		return nil, err
	}

	if stepErr != nil {
		return sess, invalid(stepErr)
	}
	return sess, nil
}

func (uc *ManageSessionUseCase) ResetFlow(ctx context.Context, sessionID string) (*session.Session, error) {
	return uc.guard.mutate(ctx, sessionID, func(sess *session.Session) error {
		sess.Flow = sess.Flow.Reset()
		sess.Checkout = sess.Checkout.Reset()
		return nil
	})
}

func (uc *ManageSessionUseCase) UpdatePayment(ctx context.Context, sessionID string, update PaymentUpdate) (*session.Session, error) {
	return uc.guard.mutate(ctx, sessionID, func(sess *session.Session) error {
		return applyPaymentUpdate(sess, update)
	})
}

func applyPaymentUpdate(sess *session.Session, update PaymentUpdate) error {
	state := sess.Checkout

	if update.Method != nil {
		next, err := state.SetPaymentMethod(*update.Method)
		if err != nil {
			return invalid(err)
		}
		state = next
	}
	if update.Details != nil {
		state = state.UpdatePaymentDetails(*update.Details)
	}
	if update.Billing != nil {
		state = prefillBilling(state, *update.Billing, sess.Flow.Guest.Address)
	}

	sess.Checkout = state
	return nil
}

// prefillBilling copies the guest address into an empty billing address the moment the
// guest stops using it as the billing address.
func prefillBilling(state checkout.State, update checkout.BillingAddressUpdate, guest booking.Address) checkout.State {
	separating := update.SameAsGuest != nil && !*update.SameAsGuest && state.BillingAddress.SameAsGuest
	if separating && state.BillingAddress == (checkout.BillingAddress{SameAsGuest: true}) {
		state = state.UpdateBillingAddress(checkout.BillingAddressUpdate{
			Street:  &guest.Street,
			City:    &guest.City,
			State:   &guest.State,
			Country: &guest.Country,
			ZipCode: &guest.ZipCode,
		})
	}
	return state.UpdateBillingAddress(update)
}

func (uc *ManageSessionUseCase) ResetCheckout(ctx context.Context, sessionID string) (*session.Session, error) {
	return uc.guard.mutate(ctx, sessionID, func(sess *session.Session) error {
		sess.Checkout = sess.Checkout.Reset()
		return nil
	})
}

func (uc *ManageSessionUseCase) ClearErrors(ctx context.Context, sessionID string) (*session.Session, error) {
	return uc.guard.mutate(ctx, sessionID, func(sess *session.Session) error {
		sess.ClearErrors()
		return nil
	})
}
