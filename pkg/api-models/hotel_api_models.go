// Package apimodels holds the JSON shapes exchanged with the hotel API.
package apimodels

// Envelope wraps every hotel API response body.
type Envelope[T any] struct {
	Success bool     `json:"success"`
	Data    T        `json:"data"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type Occupancy struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

type BusinessUnit struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Description  string   `json:"description"`
	Address      string   `json:"address"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email"`
	Images       []string `json:"images"`
	Amenities    []string `json:"amenities"`
	CheckInTime  string   `json:"checkInTime"`
	CheckOutTime string   `json:"checkOutTime"`
}

type RoomType struct {
	ID               string    `json:"id"`
	BusinessUnitID   string    `json:"businessUnitId"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Capacity         Occupancy `json:"capacity"`
	BedConfiguration string    `json:"bedConfiguration"`
	Size             float64   `json:"size"`
	Images           []string  `json:"images"`
	Amenities        []string  `json:"amenities"`
	BasePrice        float64   `json:"basePrice"`
	Currency         string    `json:"currency"`
}

type RoomAvailability struct {
	RoomTypeID     string   `json:"roomTypeId"`
	RoomType       RoomType `json:"roomType"`
	AvailableRooms int      `json:"availableRooms"`
	PricePerNight  float64  `json:"pricePerNight"`
	TotalPrice     float64  `json:"totalPrice"`
	Taxes          float64  `json:"taxes"`
	Fees           float64  `json:"fees"`
	FinalPrice     float64  `json:"finalPrice"`
	Currency       string   `json:"currency"`
	IsAvailable    bool     `json:"isAvailable"`
	Restrictions   []string `json:"restrictions,omitempty"`
}

type AvailabilityRequest struct {
	BusinessUnitID string    `json:"businessUnitId"`
	CheckInDate    string    `json:"checkInDate"`
	CheckOutDate   string    `json:"checkOutDate"`
	Guests         Occupancy `json:"guests"`
}

type AvailabilityResponse struct {
	BusinessUnit   BusinessUnit       `json:"businessUnit"`
	CheckInDate    string             `json:"checkInDate"`
	CheckOutDate   string             `json:"checkOutDate"`
	TotalNights    int                `json:"totalNights"`
	AvailableRooms []RoomAvailability `json:"availableRooms"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
}

type Guest struct {
	ID          string  `json:"id,omitempty"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Address     Address `json:"address"`
	DateOfBirth string  `json:"dateOfBirth,omitempty"`
	Nationality string  `json:"nationality,omitempty"`
	IDType      string  `json:"idType,omitempty"`
	IDNumber    string  `json:"idNumber,omitempty"`
}

// CreateReservationRequest is the booking request with the guest profile inlined.
type CreateReservationRequest struct {
	BusinessUnitID  string    `json:"businessUnitId"`
	RoomTypeID      string    `json:"roomTypeId"`
	CheckInDate     string    `json:"checkInDate"`
	CheckOutDate    string    `json:"checkOutDate"`
	Guests          Occupancy `json:"guests"`
	SpecialRequests string    `json:"specialRequests,omitempty"`
	Guest           Guest     `json:"guest"`
}

type Reservation struct {
	ID              string    `json:"id"`
	BusinessUnitID  string    `json:"businessUnitId"`
	RoomID          string    `json:"roomId"`
	RoomType        RoomType  `json:"roomType"`
	CheckInDate     string    `json:"checkInDate"`
	CheckOutDate    string    `json:"checkOutDate"`
	Guests          Occupancy `json:"guests"`
	TotalNights     int       `json:"totalNights"`
	BaseAmount      float64   `json:"baseAmount"`
	Taxes           float64   `json:"taxes"`
	Fees            float64   `json:"fees"`
	TotalAmount     float64   `json:"totalAmount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	Guest           Guest     `json:"guest"`
	SpecialRequests string    `json:"specialRequests,omitempty"`
	CreatedAt       string    `json:"createdAt"`
	UpdatedAt       string    `json:"updatedAt"`
}

type PaymentDetails struct {
	Method         string   `json:"method"`
	CardNumber     string   `json:"cardNumber,omitempty"`
	ExpiryMonth    string   `json:"expiryMonth,omitempty"`
	ExpiryYear     string   `json:"expiryYear,omitempty"`
	CVV            string   `json:"cvv,omitempty"`
	CardHolderName string   `json:"cardHolderName,omitempty"`
	BillingAddress *Address `json:"billingAddress,omitempty"`
}

type ProcessPaymentRequest struct {
	ReservationID  string         `json:"reservationId"`
	PaymentDetails PaymentDetails `json:"paymentDetails"`
}

type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
}

type PaymentStatus struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
}
