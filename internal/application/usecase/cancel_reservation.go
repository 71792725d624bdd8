package usecase

import (
	"context"
	"log/slog"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
)

type CancelReservationUseCase struct {
	guard       *sessionGuard
	provider    booking.Provider
	bookkeeping *bookkeeping
	logger      *slog.Logger
}

func NewCancelReservationUseCase(
	sessions session.Repository,
	locks booking.LockRepository,
	provider booking.Provider,
	ledger booking.LedgerRepository,
	events booking.EventPublisher,
	settings Settings,
	clock Clock,
	logger *slog.Logger,
) *CancelReservationUseCase {
	return &CancelReservationUseCase{
		guard:       newSessionGuard(sessions, locks, settings, clock, logger),
		provider:    provider,
		bookkeeping: newBookkeeping(ledger, events, settings.OperationTimeout, logger),
		logger:      logger,
	}
}

func (uc *CancelReservationUseCase) Execute(ctx context.Context, sessionID string) (*session.Session, error) {
	release, err := uc.guard.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := uc.guard.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	flow, reservationID, err := sess.Flow.BeginCancellation()
	if err != nil {
		return nil, invalid(err)
	}
	sess.Flow = flow
	if err := uc.guard.save(ctx, sess); err != nil {
		return nil, err
	}

	reservation, err := call(ctx, uc.guard.settings.OperationTimeout, func(ctx context.Context) (*booking.Reservation, error) {
		return uc.provider.CancelReservation(ctx, reservationID)
	})
	if err == nil && reservation == nil {
		err = errEmptyResponse
	}

	if err != nil {
		uc.logger.Error("Failed to cancel reservation", "session_id", sessionID, "reservation_id", reservationID, "error", err)
		sess.Flow = sess.Flow.CancellationFailed(failureMessage(err, ""))
	} else {
		sess.Flow = sess.Flow.ReservationUpdated(*reservation)
		uc.logger.Info("Reservation cancelled", "session_id", sessionID, "reservation_id", reservationID)
		uc.bookkeeping.reservationCancelled(ctx, reservation)
	}

	if err := uc.guard.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
