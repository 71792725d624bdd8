package bookingflow

import (
	"maps"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
)

// FieldErrors maps a guest form field to the message shown next to it.
type FieldErrors map[string]string

const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldStreet    = "street"
	FieldCity      = "city"
	FieldCountry   = "country"
)

var requiredMessages = map[string]string{
	FieldFirstName: "First name is required",
	FieldLastName:  "Last name is required",
	FieldEmail:     "Email is required",
	FieldPhone:     "Phone number is required",
	FieldStreet:    "Street address is required",
	FieldCity:      "City is required",
	FieldCountry:   "Country is required",
}

const invalidEmailMessage = "Please enter a valid email"

var basicEmailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type guestForm struct {
	FirstName string `json:"first_name" validate:"nonblank"`
	LastName  string `json:"last_name" validate:"nonblank"`
	Email     string `json:"email" validate:"nonblank,basic_email"`
	Phone     string `json:"phone" validate:"nonblank"`
	Street    string `json:"street" validate:"nonblank"`
	City      string `json:"city" validate:"nonblank"`
	Country   string `json:"country" validate:"nonblank"`
}

var guestValidator = newGuestValidator()

func newGuestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return basicEmailPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}

// ValidateGuest returns one message per invalid required field; optional fields are never checked.
func ValidateGuest(guest booking.GuestProfile) FieldErrors {
	form := guestForm{
		FirstName: guest.FirstName,
		LastName:  guest.LastName,
		Email:     guest.Email,
		Phone:     guest.Phone,
		Street:    guest.Address.Street,
		City:      guest.Address.City,
		Country:   guest.Address.Country,
	}

	err := guestValidator.Struct(form)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"guest": err.Error()}
	}

	fieldErrors := make(FieldErrors, len(validationErrors))
	for _, fieldError := range validationErrors {
		field := fieldError.Field()
		if fieldError.Tag() == "basic_email" {
			fieldErrors[field] = invalidEmailMessage
			continue
		}
		fieldErrors[field] = requiredMessages[field]
	}
	return fieldErrors
}

func IsGuestValid(guest booking.GuestProfile) bool {
	return len(ValidateGuest(guest)) == 0
}

func (e FieldErrors) without(fields []string) FieldErrors {
	if len(e) == 0 || len(fields) == 0 {
		return e
	}
	remaining := maps.Clone(e)
	for _, field := range fields {
		delete(remaining, field)
	}
	if len(remaining) == 0 {
		return nil
	}
	return remaining
}
