package booking

import (
	"context"
	"time"
)

//go:generate mockgen -destination=../../mocks/booking_mocks.go -package=mocks . Provider,CacheRepository,LockRepository,LedgerRepository,EventPublisher,CredentialStore

// Provider is the external hotel REST API.
type Provider interface {
	CheckAvailability(ctx context.Context, query AvailabilityQuery) (*AvailabilityResult, error)
	CreateReservation(ctx context.Context, request ReservationRequest) (*Reservation, error)
	ProcessPayment(ctx context.Context, request PaymentRequest) (*PaymentResult, error)
	GetPaymentStatus(ctx context.Context, transactionID string) (*PaymentStatusResult, error)
	CancelReservation(ctx context.Context, reservationID string) (*Reservation, error)
}

type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type LockRepository interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}

type PendingPayment struct {
	TransactionID string
	ReservationID string
	Status        PaymentStatus
}

type LedgerRepository interface {
	SaveReservation(ctx context.Context, sessionID string, reservation *Reservation) error
	UpdateReservationStatus(ctx context.Context, reservationID string, status ReservationStatus) error
	SavePayment(ctx context.Context, reservationID string, method PaymentMethod, result *PaymentResult) error
	UpdatePaymentStatus(ctx context.Context, transactionID string, status PaymentStatus) error
	FindPendingPayments(ctx context.Context, limit int) ([]PendingPayment, error)
}

type EventType string

const (
	EventReservationConfirmed EventType = "reservation.confirmed"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventPaymentProcessed     EventType = "payment.processed"
	EventPaymentStatusChanged EventType = "payment.status_changed"
)

type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// CredentialStore holds the bearer token attached to hotel API calls.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}
