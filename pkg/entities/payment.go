package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRecord struct {
	ID string `gorm:"primaryKey;type:varchar(36)"`

	TransactionID string `gorm:"not null;type:varchar(64);uniqueIndex"`
	ReservationID string `gorm:"not null;type:varchar(64);index"`
	Method        string `gorm:"type:varchar(20)"`
	Success       bool   `gorm:"type:boolean"`
	Status        string `gorm:"type:varchar(20);index:idx_payments_status"`

	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
	LastCheckedAt *time.Time
}

func (PaymentRecord) TableName() string {
	return "payments"
}

func (p *PaymentRecord) BeforeCreate(_ *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	return
}
