package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/constants"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/database"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/entities"
)

// GormLedgerRepository keeps a durable record of reservations and payments made through
// booking sessions. Sessions expire, the ledger does not.
type GormLedgerRepository struct {
	db *gorm.DB
}

func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

func (r *GormLedgerRepository) SaveReservation(ctx context.Context, sessionID string, reservation *booking.Reservation) error {
	guests, err := json.Marshal(reservation.Guests)
	if err != nil {
		return fmt.Errorf("failed to encode guests: %w", err)
	}
	guest, err := json.Marshal(reservation.Guest)
	if err != nil {
		return fmt.Errorf("failed to encode guest: %w", err)
	}

	record := &entities.ReservationRecord{
		ReservationID: reservation.ID,
		SessionID:     sessionID,
		PropertyID:    reservation.PropertyID,
		RoomTypeID:    reservation.RoomType.ID,
		CheckInDate:   reservation.CheckInDate,
		CheckOutDate:  reservation.CheckOutDate,
		TotalNights:   reservation.TotalNights,
		TotalAmount:   reservation.TotalAmount,
		Currency:      reservation.Currency,
		Status:        string(reservation.Status),
		GuestEmail:    reservation.Guest.Email,
		Guests:        datatypes.JSON(guests),
		Guest:         datatypes.JSON(guest),
	}

	var existing entities.ReservationRecord
	err = r.db.WithContext(ctx).Where(constants.ReservationId+" = ?", reservation.ID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(record).Error
		}
		return err
	}

	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *GormLedgerRepository) UpdateReservationStatus(ctx context.Context, reservationID string, status booking.ReservationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&entities.ReservationRecord{}).
		Where(constants.ReservationId+" = ?", reservationID).
		Update(constants.Status, string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("reservation %s not in ledger: %w", reservationID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *GormLedgerRepository) SavePayment(ctx context.Context, reservationID string, method booking.PaymentMethod, result *booking.PaymentResult) error {
	status := booking.PaymentStatusFailed
	if result.Success {
		status = booking.PaymentStatusPending
	}

	return r.db.WithContext(ctx).Create(&entities.PaymentRecord{
		TransactionID: result.TransactionID,
		ReservationID: reservationID,
		Method:        string(method),
		Success:       result.Success,
		Status:        string(status),
	}).Error
}

func (r *GormLedgerRepository) UpdatePaymentStatus(ctx context.Context, transactionID string, status booking.PaymentStatus) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&entities.PaymentRecord{}).
		Where(constants.TransactionId+" = ?", transactionID).
		Updates(map[string]any{
			constants.Status:        string(status),
			constants.LastCheckedAt: now,
			"updated_at":            now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("payment %s not in ledger: %w", transactionID, gorm.ErrRecordNotFound)
	}
	return nil
}

// FindPendingPayments returns up to limit pending payments and stamps them as checked, so
// consecutive batches walk through the whole backlog.
func (r *GormLedgerRepository) FindPendingPayments(ctx context.Context, limit int) ([]booking.PendingPayment, error) {
	rows, err := database.QueryPendingPayments(ctx, r.db, limit)
	if err != nil {
		return nil, err
	}

	pending := make([]booking.PendingPayment, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		pending = append(pending, booking.PendingPayment{
			TransactionID: row.TransactionID,
			ReservationID: row.ReservationID,
			Status:        booking.PaymentStatus(row.Status),
		})
		ids = append(ids, row.TransactionID)
	}

	if err := database.MarkPaymentsChecked(ctx, r.db, ids, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to mark payments checked: %w", err)
	}
	return pending, nil
}
