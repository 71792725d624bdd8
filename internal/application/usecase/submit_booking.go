package usecase

import (
	"context"
	"log/slog"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
)

type SubmitBookingUseCase struct {
	guard       *sessionGuard
	provider    booking.Provider
	cache       booking.CacheRepository
	bookkeeping *bookkeeping
	logger      *slog.Logger
}

func NewSubmitBookingUseCase(
	sessions session.Repository,
	locks booking.LockRepository,
	provider booking.Provider,
	cache booking.CacheRepository,
	ledger booking.LedgerRepository,
	events booking.EventPublisher,
	settings Settings,
	clock Clock,
	logger *slog.Logger,
) *SubmitBookingUseCase {
	return &SubmitBookingUseCase{
		guard:       newSessionGuard(sessions, locks, settings, clock, logger),
		provider:    provider,
		cache:       cache,
		bookkeeping: newBookkeeping(ledger, events, settings.OperationTimeout, logger),
		logger:      logger,
	}
}

// Execute creates the reservation for the session's flow. A failed precondition is stored
// on the flow and returned as a ValidationError together with the session.
func (uc *SubmitBookingUseCase) Execute(ctx context.Context, sessionID string) (*session.Session, error) {
	release, err := uc.guard.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := uc.guard.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	flow, request, err := sess.Flow.BeginSubmit()
	sess.Flow = flow
	if saveErr := uc.guard.save(ctx, sess); saveErr != nil {
		return nil, saveErr
	}
	if err != nil {
		return sess, invalid(err)
	}

	reservation, err := call(ctx, uc.guard.settings.OperationTimeout, func(ctx context.Context) (*booking.Reservation, error) {
		return uc.provider.CreateReservation(ctx, request)
	})
	if err == nil && reservation == nil {
		err = errEmptyResponse
	}

	if err != nil {
		uc.logger.Error("Failed to create reservation",
			"session_id", sessionID,
			"room_type_id", request.Booking.RoomTypeID,
			"error", err)
		sess.Flow = sess.Flow.SubmitFailed(failureMessage(err, ""))
	} else {
		sess.Flow = sess.Flow.SubmitSucceeded(*reservation)
		uc.logger.Info("Reservation created", "session_id", sessionID, "reservation_id", reservation.ID)
		uc.evictAvailability(ctx, request.Booking.Query())
		uc.bookkeeping.reservationConfirmed(ctx, sessionID, reservation)
	}

	if err := uc.guard.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// evictAvailability drops the cached search that offered the booked room so the next
// search sees the reduced availability.
func (uc *SubmitBookingUseCase) evictAvailability(ctx context.Context, query booking.AvailabilityQuery) {
	key := availabilityCacheKey(query)
	if err := uc.cache.Delete(context.WithoutCancel(ctx), key); err != nil {
		uc.logger.Warn("Failed to evict cached availability", "cache_key", key, "error", err)
	}
}
