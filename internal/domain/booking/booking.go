package booking

import (
	"errors"
	"time"
)

const (
	MinAdults   = 1
	MaxAdults   = 8
	MinChildren = 0
	MaxChildren = 6
)

var ErrIncompleteCriteria = errors.New("search criteria require a property, check-in and check-out date")

type Property struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug,omitempty"`
	Description  string   `json:"description,omitempty"`
	Address      string   `json:"address,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Email        string   `json:"email,omitempty"`
	Images       []string `json:"images,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
	CheckInTime  string   `json:"check_in_time,omitempty"`
	CheckOutTime string   `json:"check_out_time,omitempty"`
}

type Occupancy struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

func (o Occupancy) Total() int {
	return o.Adults + o.Children
}

type RoomType struct {
	ID               string    `json:"id"`
	PropertyID       string    `json:"property_id,omitempty"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Capacity         Occupancy `json:"capacity"`
	BedConfiguration string    `json:"bed_configuration"`
	Size             float64   `json:"size"`
	Images           []string  `json:"images,omitempty"`
	Amenities        []string  `json:"amenities,omitempty"`
	BasePrice        float64   `json:"base_price,omitempty"`
	Currency         string    `json:"currency,omitempty"`
}

type RoomOffer struct {
	RoomTypeID     string   `json:"room_type_id"`
	RoomType       RoomType `json:"room_type"`
	AvailableCount int      `json:"available_count"`
	PricePerNight  float64  `json:"price_per_night"`
	TotalPrice     float64  `json:"total_price"`
	Taxes          float64  `json:"taxes"`
	Fees           float64  `json:"fees"`
	FinalPrice     float64  `json:"final_price"`
	Currency       string   `json:"currency"`
	IsAvailable    bool     `json:"is_available"`
	Restrictions   []string `json:"restrictions,omitempty"`
}

type AvailabilityResult struct {
	Property     Property    `json:"property"`
	CheckInDate  time.Time   `json:"check_in_date"`
	CheckOutDate time.Time   `json:"check_out_date"`
	TotalNights  int         `json:"total_nights"`
	Rooms        []RoomOffer `json:"rooms"`
}

func (r *AvailabilityResult) FindRoom(roomTypeID string) (RoomOffer, bool) {
	if r == nil {
		return RoomOffer{}, false
	}
	for _, room := range r.Rooms {
		if room.RoomTypeID == roomTypeID {
			return room, true
		}
	}
	return RoomOffer{}, false
}

// SearchCriteria is the user-editable search form. Dates are calendar dates; nil means unset.
type SearchCriteria struct {
	PropertyID   string     `json:"property_id"`
	CheckInDate  *time.Time `json:"check_in_date,omitempty"`
	CheckOutDate *time.Time `json:"check_out_date,omitempty"`
	Adults       int        `json:"adults"`
	Children     int        `json:"children"`
}

type AvailabilityQuery struct {
	PropertyID   string
	CheckInDate  time.Time
	CheckOutDate time.Time
	Guests       Occupancy
}

func (c SearchCriteria) Query() (AvailabilityQuery, error) {
	if c.PropertyID == "" || c.CheckInDate == nil || c.CheckOutDate == nil {
		return AvailabilityQuery{}, ErrIncompleteCriteria
	}
	return AvailabilityQuery{
		PropertyID:   c.PropertyID,
		CheckInDate:  *c.CheckInDate,
		CheckOutDate: *c.CheckOutDate,
		Guests:       Occupancy{Adults: c.Adults, Children: c.Children},
	}, nil
}

type BookingRequest struct {
	PropertyID      string    `json:"property_id"`
	RoomTypeID      string    `json:"room_type_id"`
	CheckInDate     time.Time `json:"check_in_date"`
	CheckOutDate    time.Time `json:"check_out_date"`
	Guests          Occupancy `json:"guests"`
	SpecialRequests string    `json:"special_requests,omitempty"`
}

func NewBookingRequest(criteria SearchCriteria, roomTypeID string) (BookingRequest, error) {
	query, err := criteria.Query()
	if err != nil {
		return BookingRequest{}, err
	}
	return BookingRequest{
		PropertyID:   query.PropertyID,
		RoomTypeID:   roomTypeID,
		CheckInDate:  query.CheckInDate,
		CheckOutDate: query.CheckOutDate,
		Guests:       query.Guests,
	}, nil
}

// Query is the availability search that offered the booked room.
func (r BookingRequest) Query() AvailabilityQuery {
	return AvailabilityQuery{
		PropertyID:   r.PropertyID,
		CheckInDate:  r.CheckInDate,
		CheckOutDate: r.CheckOutDate,
		Guests:       r.Guests,
	}
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zip_code"`
}

type IDType string

const (
	IDTypePassport       IDType = "passport"
	IDTypeDriversLicense IDType = "drivers-license"
	IDTypeNationalID     IDType = "national-id"
)

type GuestProfile struct {
	ID          string  `json:"id,omitempty"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Address     Address `json:"address"`
	DateOfBirth string  `json:"date_of_birth,omitempty"`
	Nationality string  `json:"nationality,omitempty"`
	IDType      IDType  `json:"id_type,omitempty"`
	IDNumber    string  `json:"id_number,omitempty"`
}

type ReservationStatus string

const (
	ReservationPending    ReservationStatus = "pending"
	ReservationConfirmed  ReservationStatus = "confirmed"
	ReservationCheckedIn  ReservationStatus = "checked-in"
	ReservationCheckedOut ReservationStatus = "checked-out"
	ReservationCancelled  ReservationStatus = "cancelled"
)

type ReservationRequest struct {
	Booking BookingRequest
	Guest   GuestProfile
}

// Reservation is owned by the hotel API and treated as read-only once received.
type Reservation struct {
	ID              string            `json:"id"`
	PropertyID      string            `json:"property_id"`
	RoomID          string            `json:"room_id,omitempty"`
	RoomType        RoomType          `json:"room_type"`
	CheckInDate     time.Time         `json:"check_in_date"`
	CheckOutDate    time.Time         `json:"check_out_date"`
	Guests          Occupancy         `json:"guests"`
	TotalNights     int               `json:"total_nights"`
	BaseAmount      float64           `json:"base_amount"`
	Taxes           float64           `json:"taxes"`
	Fees            float64           `json:"fees"`
	TotalAmount     float64           `json:"total_amount"`
	Currency        string            `json:"currency"`
	Status          ReservationStatus `json:"status"`
	Guest           GuestProfile      `json:"guest"`
	SpecialRequests string            `json:"special_requests,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit-card"
	PaymentMethodDebitCard    PaymentMethod = "debit-card"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank-transfer"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal, PaymentMethodBankTransfer:
		return true
	}
	return false
}

func (m PaymentMethod) IsCard() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodDebitCard
}

type CardDetails struct {
	CardNumber     string `json:"card_number"`
	ExpiryMonth    string `json:"expiry_month"`
	ExpiryYear     string `json:"expiry_year"`
	CVV            string `json:"cvv"`
	CardHolderName string `json:"card_holder_name"`
}

type PaymentRequest struct {
	ReservationID  string
	Method         PaymentMethod
	Card           *CardDetails
	BillingAddress *Address
}

type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type PaymentStatusResult struct {
	TransactionID string        `json:"transaction_id"`
	Status        PaymentStatus `json:"status"`
}
