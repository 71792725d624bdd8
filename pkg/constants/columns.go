package constants

// Ledger column names shared by the gorm repository and raw queries.
const (
	ReservationId = "reservation_id"
	TransactionId = "transaction_id"
	SessionId     = "session_id"
	Status        = "status"
	LastCheckedAt = "last_checked_at"
)
