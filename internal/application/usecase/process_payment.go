package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/bookingflow"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/checkout"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
)

var ErrPaymentDetailsInvalid = errors.New("payment details or billing address are incomplete")

type ProcessPaymentUseCase struct {
	guard       *sessionGuard
	provider    booking.Provider
	bookkeeping *bookkeeping
	logger      *slog.Logger
}

func NewProcessPaymentUseCase(
	sessions session.Repository,
	locks booking.LockRepository,
	provider booking.Provider,
	ledger booking.LedgerRepository,
	events booking.EventPublisher,
	settings Settings,
	clock Clock,
	logger *slog.Logger,
) *ProcessPaymentUseCase {
	return &ProcessPaymentUseCase{
		guard:       newSessionGuard(sessions, locks, settings, clock, logger),
		provider:    provider,
		bookkeeping: newBookkeeping(ledger, events, settings.OperationTimeout, logger),
		logger:      logger,
	}
}

// Execute applies update and pays for the session's reservation. The card number and cvv
// are not persisted, so card payments carry them in update. CanProcessPayment is checked
// here, before the checkout state builds the payload.
func (uc *ProcessPaymentUseCase) Execute(ctx context.Context, sessionID string, update PaymentUpdate) (*session.Session, error) {
	release, err := uc.guard.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := uc.guard.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reservation := sess.Flow.Reservation
	if reservation == nil {
		return nil, invalid(bookingflow.ErrNoReservation)
	}
	if reservation.Status == booking.ReservationCancelled {
		return nil, invalid(bookingflow.ErrReservationCancelled)
	}
	if sess.Checkout.IsPaid(reservation.ID) {
		return nil, invalid(checkout.ErrAlreadyPaid)
	}
	if err := applyPaymentUpdate(sess, update); err != nil {
		return nil, err
	}
	if !sess.Checkout.CanProcessPayment() {
		return nil, invalid(ErrPaymentDetailsInvalid)
	}

	state, request, err := sess.Checkout.BeginPayment(reservation.ID)
	if err != nil {
		return nil, invalid(err)
	}
	sess.Checkout = state
	if err := uc.guard.save(ctx, sess); err != nil {
		return nil, err
	}

	result, err := call(ctx, uc.guard.settings.OperationTimeout, func(ctx context.Context) (*booking.PaymentResult, error) {
		return uc.provider.ProcessPayment(ctx, request)
	})
	if err == nil && result == nil {
		err = errEmptyResponse
	}

	if err != nil {
		uc.logger.Error("Failed to process payment",
			"session_id", sessionID,
			"reservation_id", reservation.ID,
			"method", request.Method,
			"error", err)
		sess.Checkout = sess.Checkout.PaymentFailed(failureMessage(err, ""))
	} else {
		sess.Checkout = sess.Checkout.PaymentSucceeded(*result)
		uc.logger.Info("Payment processed",
			"session_id", sessionID,
			"reservation_id", reservation.ID,
			"transaction_id", result.TransactionID,
			"success", result.Success)
		uc.bookkeeping.paymentProcessed(ctx, reservation.ID, request.Method, result)
	}

	if err := uc.guard.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

type GetPaymentStatusUseCase struct {
	guard       *sessionGuard
	provider    booking.Provider
	bookkeeping *bookkeeping
	logger      *slog.Logger
}

func NewGetPaymentStatusUseCase(
	sessions session.Repository,
	locks booking.LockRepository,
	provider booking.Provider,
	ledger booking.LedgerRepository,
	events booking.EventPublisher,
	settings Settings,
	clock Clock,
	logger *slog.Logger,
) *GetPaymentStatusUseCase {
	return &GetPaymentStatusUseCase{
		guard:       newSessionGuard(sessions, locks, settings, clock, logger),
		provider:    provider,
		bookkeeping: newBookkeeping(ledger, events, settings.OperationTimeout, logger),
		logger:      logger,
	}
}

func (uc *GetPaymentStatusUseCase) Execute(ctx context.Context, sessionID string) (*session.Session, error) {
	release, err := uc.guard.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := uc.guard.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	transactionID, err := sess.Checkout.TransactionID()
	if err != nil {
		return nil, invalid(err)
	}

	status, err := call(ctx, uc.guard.settings.OperationTimeout, func(ctx context.Context) (*booking.PaymentStatusResult, error) {
		return uc.provider.GetPaymentStatus(ctx, transactionID)
	})
	if err == nil && status == nil {
		err = errEmptyResponse
	}

	if err != nil {
		uc.logger.Error("Failed to get payment status", "session_id", sessionID, "transaction_id", transactionID, "error", err)
		sess.Checkout = sess.Checkout.StatusCheckFailed(failureMessage(err, ""))
	} else {
		previous := sess.Checkout.PaymentStatus
		sess.Checkout = sess.Checkout.PaymentStatusUpdated(status.Status)
		if previous != status.Status {
			uc.bookkeeping.paymentStatusChanged(ctx, transactionID, status.Status)
		}
	}

	if err := uc.guard.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
