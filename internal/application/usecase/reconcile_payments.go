package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
)

type ReconcileResult struct {
	Checked  int           `json:"checked"`
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// ReconcilePaymentsUseCase polls the hotel API for payments the ledger still has pending.
type ReconcilePaymentsUseCase struct {
	provider    booking.Provider
	ledger      booking.LedgerRepository
	bookkeeping *bookkeeping
	timeout     time.Duration
	logger      *slog.Logger
}

func NewReconcilePaymentsUseCase(
	provider booking.Provider,
	ledger booking.LedgerRepository,
	events booking.EventPublisher,
	timeout time.Duration,
	logger *slog.Logger,
) *ReconcilePaymentsUseCase {
	return &ReconcilePaymentsUseCase{
		provider:    provider,
		ledger:      ledger,
		bookkeeping: newBookkeeping(ledger, events, timeout, logger),
		timeout:     timeout,
		logger:      logger,
	}
}

func (uc *ReconcilePaymentsUseCase) Execute(ctx context.Context, batchSize int) (*ReconcileResult, error) {
	startTime := time.Now()

	pending, err := uc.ledger.FindPendingPayments(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending payments: %w", err)
	}

	result := &ReconcileResult{}
	for _, payment := range pending {
		if ctx.Err() != nil {
			break
		}
		result.Checked++

		status, err := call(ctx, uc.timeout, func(ctx context.Context) (*booking.PaymentStatusResult, error) {
			return uc.provider.GetPaymentStatus(ctx, payment.TransactionID)
		})
		if err != nil || status == nil {
			result.Failed++
			uc.logger.Warn("Failed to poll payment status", "transaction_id", payment.TransactionID, "error", err)
			continue
		}

		if status.Status == payment.Status {
			continue
		}

		uc.bookkeeping.paymentStatusChanged(ctx, payment.TransactionID, status.Status)
		result.Updated++
	}

	result.Duration = time.Since(startTime)
	uc.logger.Info("Payment reconciliation finished",
		"checked", result.Checked,
		"updated", result.Updated,
		"failed", result.Failed,
		"duration", result.Duration)

	return result, nil
}
