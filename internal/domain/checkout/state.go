// Package checkout collects a payment method and its details and tracks one payment
// attempt against a confirmed reservation.
package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
)

var (
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrMissingReservation   = errors.New("a confirmed reservation is required before payment")
	ErrNoPayment            = errors.New("no payment has been processed yet")
	ErrAlreadyPaid          = errors.New("payment has already been accepted")
)

const (
	defaultPaymentError     = "Payment processing failed"
	defaultStatusCheckError = "Failed to get payment status"
)

// PaymentDetails never serializes the card number or the cvv. Only MaskedCardNumber is
// stored and rendered, so both must be supplied again in the request that pays.
type PaymentDetails struct {
	Method           booking.PaymentMethod `json:"method"`
	CardNumber       string                `json:"-" validate:"required"`
	MaskedCardNumber string                `json:"card_number,omitempty"`
	ExpiryMonth      string                `json:"expiry_month" validate:"required"`
	ExpiryYear       string                `json:"expiry_year" validate:"required"`
	CVV              string                `json:"-" validate:"required"`
	CardHolderName   string                `json:"card_holder_name" validate:"required"`
}

type BillingAddress struct {
	Street      string `json:"street" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state"`
	Country     string `json:"country" validate:"required"`
	ZipCode     string `json:"zip_code" validate:"required"`
	SameAsGuest bool   `json:"same_as_guest"`
}

type PaymentDetailsUpdate struct {
	CardNumber     *string `json:"card_number,omitempty"`
	ExpiryMonth    *string `json:"expiry_month,omitempty"`
	ExpiryYear     *string `json:"expiry_year,omitempty"`
	CVV            *string `json:"cvv,omitempty"`
	CardHolderName *string `json:"card_holder_name,omitempty"`
}

type BillingAddressUpdate struct {
	Street      *string `json:"street,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	Country     *string `json:"country,omitempty"`
	ZipCode     *string `json:"zip_code,omitempty"`
	SameAsGuest *bool   `json:"same_as_guest,omitempty"`
}

type State struct {
	SelectedPaymentMethod booking.PaymentMethod  `json:"selected_payment_method"`
	PaymentDetails        PaymentDetails         `json:"payment_details"`
	BillingAddress        BillingAddress         `json:"billing_address"`
	IsProcessing          bool                   `json:"is_processing"`
	Error                 string                 `json:"error,omitempty"`
	PaymentResult         *booking.PaymentResult `json:"payment_result,omitempty"`
	PaymentStatus         booking.PaymentStatus  `json:"payment_status,omitempty"`
	ReservationID         string                 `json:"reservation_id,omitempty"`
}

var fieldValidator = newFieldValidator()

func newFieldValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func New() State {
	return State{
		SelectedPaymentMethod: booking.PaymentMethodCreditCard,
		PaymentDetails:        PaymentDetails{Method: booking.PaymentMethodCreditCard},
		BillingAddress:        BillingAddress{SameAsGuest: true},
	}
}

// SetPaymentMethod also mirrors the method into the payment details.
func (s State) SetPaymentMethod(method booking.PaymentMethod) (State, error) {
	if !method.IsValid() {
		return s, ErrUnknownPaymentMethod
	}
	s.SelectedPaymentMethod = method
	s.PaymentDetails.Method = method
	s.Error = ""
	return s, nil
}

// UpdatePaymentDetails stores the card number formatted and capped at 16 digits and the
// cvv as at most four digits.
func (s State) UpdatePaymentDetails(update PaymentDetailsUpdate) State {
	if update.CardNumber != nil {
		s.PaymentDetails.CardNumber = FormatCardNumber(*update.CardNumber)
		s.PaymentDetails.MaskedCardNumber = MaskCardNumber(s.PaymentDetails.CardNumber)
	}
	if update.ExpiryMonth != nil {
		s.PaymentDetails.ExpiryMonth = *update.ExpiryMonth
	}
	if update.ExpiryYear != nil {
		s.PaymentDetails.ExpiryYear = *update.ExpiryYear
	}
	if update.CVV != nil {
		s.PaymentDetails.CVV = SanitizeCVV(*update.CVV)
	}
	if update.CardHolderName != nil {
		s.PaymentDetails.CardHolderName = *update.CardHolderName
	}
	s.Error = ""
	return s
}

func (s State) UpdateBillingAddress(update BillingAddressUpdate) State {
	address := &s.BillingAddress
	if update.Street != nil {
		address.Street = *update.Street
	}
	if update.City != nil {
		address.City = *update.City
	}
	if update.State != nil {
		address.State = *update.State
	}
	if update.Country != nil {
		address.Country = *update.Country
	}
	if update.ZipCode != nil {
		address.ZipCode = *update.ZipCode
	}
	if update.SameAsGuest != nil {
		address.SameAsGuest = *update.SameAsGuest
	}
	s.Error = ""
	return s
}

// BeginPayment marks the checkout as processing and builds the payment payload. Callers
// check CanProcessPayment first; this only refuses a missing reservation id and a second
// attempt after an accepted payment for the same reservation. A result left over from
// another reservation is dropped.
func (s State) BeginPayment(reservationID string) (State, booking.PaymentRequest, error) {
	if strings.TrimSpace(reservationID) == "" {
		return s, booking.PaymentRequest{}, ErrMissingReservation
	}
	if s.IsPaid(reservationID) {
		return s, booking.PaymentRequest{}, ErrAlreadyPaid
	}
	if s.ReservationID != reservationID {
		s.PaymentResult = nil
		s.PaymentStatus = ""
	}

	request := booking.PaymentRequest{
		ReservationID: reservationID,
		Method:        s.SelectedPaymentMethod,
	}

	if s.SelectedPaymentMethod.IsCard() {
		request.Card = &booking.CardDetails{
			CardNumber:     digitsOnly(s.PaymentDetails.CardNumber),
			ExpiryMonth:    s.PaymentDetails.ExpiryMonth,
			ExpiryYear:     s.PaymentDetails.ExpiryYear,
			CVV:            s.PaymentDetails.CVV,
			CardHolderName: strings.TrimSpace(s.PaymentDetails.CardHolderName),
		}
	}

	if !s.BillingAddress.SameAsGuest {
		request.BillingAddress = &booking.Address{
			Street:  s.BillingAddress.Street,
			City:    s.BillingAddress.City,
			State:   s.BillingAddress.State,
			Country: s.BillingAddress.Country,
			ZipCode: s.BillingAddress.ZipCode,
		}
	}

	s.ReservationID = reservationID
	s.IsProcessing = true
	s.Error = ""
	return s, request, nil
}

// IsPaid reports whether a payment for reservationID has been accepted.
func (s State) IsPaid(reservationID string) bool {
	return s.ReservationID == reservationID && s.PaymentResult != nil && s.PaymentResult.Success
}

func (s State) PaymentSucceeded(result booking.PaymentResult) State {
	s.PaymentResult = &result
	s.IsProcessing = false
	s.Error = ""
	if result.Success {
		s.PaymentStatus = booking.PaymentStatusPending
	} else {
		s.PaymentStatus = booking.PaymentStatusFailed
	}
	return s
}

func (s State) PaymentFailed(message string) State {
	if message == "" {
		message = defaultPaymentError
	}
	s.IsProcessing = false
	s.Error = message
	return s
}

// TransactionID returns the id of the last processed payment.
func (s State) TransactionID() (string, error) {
	if s.PaymentResult == nil || s.PaymentResult.TransactionID == "" {
		return "", ErrNoPayment
	}
	return s.PaymentResult.TransactionID, nil
}

func (s State) PaymentStatusUpdated(status booking.PaymentStatus) State {
	s.PaymentStatus = status
	s.Error = ""
	return s
}

func (s State) StatusCheckFailed(message string) State {
	if message == "" {
		message = defaultStatusCheckError
	}
	s.Error = message
	return s
}

func (s State) Reset() State {
	return New()
}

func (s State) ClearError() State {
	s.Error = ""
	return s
}

// IsPaymentDetailsValid requires every card field for card methods; paypal and bank
// transfer need nothing locally.
func (s State) IsPaymentDetailsValid() bool {
	switch s.SelectedPaymentMethod {
	case booking.PaymentMethodCreditCard, booking.PaymentMethodDebitCard:
		return fieldValidator.Struct(s.PaymentDetails) == nil
	case booking.PaymentMethodPayPal, booking.PaymentMethodBankTransfer:
		return true
	default:
		return false
	}
}

// IsBillingAddressValid only checks the address when a card method is selected and it
// does not mirror the guest address.
func (s State) IsBillingAddressValid() bool {
	if !s.SelectedPaymentMethod.IsCard() || s.BillingAddress.SameAsGuest {
		return true
	}
	return fieldValidator.Struct(s.BillingAddress) == nil
}

func (s State) CanProcessPayment() bool {
	return s.IsPaymentDetailsValid() && s.IsBillingAddressValid()
}
