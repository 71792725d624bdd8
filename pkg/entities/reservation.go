package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReservationRecord is the ledger row for a reservation confirmed through a booking session.
type ReservationRecord struct {
	ID string `gorm:"primaryKey;type:varchar(36)"`

	ReservationID string `gorm:"not null;type:varchar(64);uniqueIndex"`
	SessionID     string `gorm:"not null;type:varchar(36);index"`
	PropertyID    string `gorm:"not null;type:varchar(64);index"`
	RoomTypeID    string `gorm:"type:varchar(64)"`

	CheckInDate  time.Time `gorm:"type:date"`
	CheckOutDate time.Time `gorm:"type:date"`
	TotalNights  int       `gorm:"type:integer"`
	TotalAmount  float64   `gorm:"type:decimal(12,2)"`
	Currency     string    `gorm:"type:varchar(3)"`
	Status       string    `gorm:"type:varchar(20);index:idx_reservations_status"`
	GuestEmail   string    `gorm:"type:varchar(255);index"`

	Guests datatypes.JSON `gorm:"type:jsonb"`
	Guest  datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Payments []PaymentRecord `gorm:"foreignKey:ReservationID;references:ReservationID"`
}

func (ReservationRecord) TableName() string {
	return "reservations"
}

func (r *ReservationRecord) BeforeCreate(_ *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	return
}

func (r *ReservationRecord) BeforeUpdate(_ *gorm.DB) (err error) {
	r.UpdatedAt = time.Now()
	return
}
