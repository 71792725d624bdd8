package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
)

// bookkeeping records confirmed outcomes in the ledger and announces them as events.
// Neither is allowed to fail the operation that produced the outcome. Each record
// survives cancellation of the request but is bounded by timeout.
type bookkeeping struct {
	ledger  booking.LedgerRepository
	events  booking.EventPublisher
	timeout time.Duration
	logger  *slog.Logger
}

func newBookkeeping(ledger booking.LedgerRepository, events booking.EventPublisher, timeout time.Duration, logger *slog.Logger) *bookkeeping {
	return &bookkeeping{ledger: ledger, events: events, timeout: timeout, logger: logger}
}

func (b *bookkeeping) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
}

func newEvent(eventType booking.EventType, data map[string]any) booking.Event {
	return booking.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func (b *bookkeeping) publish(ctx context.Context, event booking.Event) {
	if err := b.events.Publish(ctx, event); err != nil {
		b.logger.Warn("Failed to publish booking event", "event_type", event.Type, "event_id", event.ID, "error", err)
	}
}

func (b *bookkeeping) reservationConfirmed(ctx context.Context, sessionID string, reservation *booking.Reservation) {
	ctx, cancel := b.detach(ctx)
	defer cancel()

	if err := b.ledger.SaveReservation(ctx, sessionID, reservation); err != nil {
		b.logger.Warn("Failed to record reservation", "reservation_id", reservation.ID, "error", err)
	}

	b.publish(ctx, newEvent(booking.EventReservationConfirmed, map[string]any{
		"session_id":     sessionID,
		"reservation_id": reservation.ID,
		"property_id":    reservation.PropertyID,
		"room_type_id":   reservation.RoomType.ID,
		"total_amount":   reservation.TotalAmount,
		"currency":       reservation.Currency,
	}))
}

func (b *bookkeeping) reservationCancelled(ctx context.Context, reservation *booking.Reservation) {
	ctx, cancel := b.detach(ctx)
	defer cancel()

	if err := b.ledger.UpdateReservationStatus(ctx, reservation.ID, reservation.Status); err != nil {
		b.logger.Warn("Failed to record reservation cancellation", "reservation_id", reservation.ID, "error", err)
	}

	b.publish(ctx, newEvent(booking.EventReservationCancelled, map[string]any{
		"reservation_id": reservation.ID,
		"status":         reservation.Status,
	}))
}

func (b *bookkeeping) paymentProcessed(ctx context.Context, reservationID string, method booking.PaymentMethod, result *booking.PaymentResult) {
	ctx, cancel := b.detach(ctx)
	defer cancel()

	if err := b.ledger.SavePayment(ctx, reservationID, method, result); err != nil {
		b.logger.Warn("Failed to record payment", "transaction_id", result.TransactionID, "error", err)
	}

	b.publish(ctx, newEvent(booking.EventPaymentProcessed, map[string]any{
		"reservation_id": reservationID,
		"transaction_id": result.TransactionID,
		"method":         method,
		"success":        result.Success,
	}))
}

func (b *bookkeeping) paymentStatusChanged(ctx context.Context, transactionID string, status booking.PaymentStatus) {
	ctx, cancel := b.detach(ctx)
	defer cancel()

	if err := b.ledger.UpdatePaymentStatus(ctx, transactionID, status); err != nil {
		b.logger.Warn("Failed to record payment status", "transaction_id", transactionID, "error", err)
	}

	b.publish(ctx, newEvent(booking.EventPaymentStatusChanged, map[string]any{
		"transaction_id": transactionID,
		"status":         status,
	}))
}
