package database

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func GormOpen(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
}

func RunMigrations(db *gorm.DB, entities ...interface{}) error {
	if err := db.AutoMigrate(entities...); err != nil {
		return err
	}
	return nil
}

type PendingPaymentRow struct {
	TransactionID string `json:"transaction_id"`
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

// QueryPendingPayments returns pending payments, least recently checked first.
func QueryPendingPayments(ctx context.Context, db *gorm.DB, limit int) ([]PendingPaymentRow, error) {
	var results []PendingPaymentRow
	err := db.WithContext(ctx).
		Table("payments").
		Select("transaction_id, reservation_id, status").
		Where("status = ? AND success = ?", "pending", true).
		Order("last_checked_at ASC NULLS FIRST, created_at ASC").
		Limit(limit).
		Find(&results).Error
	return results, err
}

// MarkPaymentsChecked stamps the rows just polled so the next batch moves on.
func MarkPaymentsChecked(ctx context.Context, db *gorm.DB, transactionIDs []string, checkedAt time.Time) error {
	if len(transactionIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Table("payments").
		Where("transaction_id IN ?", transactionIDs).
		Update("last_checked_at", checkedAt).Error
}
