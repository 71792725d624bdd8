package bookingflow

import "github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"

// GuestUpdate is a typed partial guest profile: nil fields are left untouched.
type GuestUpdate struct {
	FirstName   *string         `json:"first_name,omitempty"`
	LastName    *string         `json:"last_name,omitempty"`
	Email       *string         `json:"email,omitempty"`
	Phone       *string         `json:"phone,omitempty"`
	Address     *AddressUpdate  `json:"address,omitempty"`
	DateOfBirth *string         `json:"date_of_birth,omitempty"`
	Nationality *string         `json:"nationality,omitempty"`
	IDType      *booking.IDType `json:"id_type,omitempty"`
	IDNumber    *string         `json:"id_number,omitempty"`
}

type AddressUpdate struct {
	Street  *string `json:"street,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty"`
	Country *string `json:"country,omitempty"`
	ZipCode *string `json:"zip_code,omitempty"`
}

func (u GuestUpdate) apply(guest booking.GuestProfile) (booking.GuestProfile, []string) {
	var touched []string
	set := func(target *string, value *string, field string) {
		if value != nil {
			*target = *value
			touched = append(touched, field)
		}
	}

	set(&guest.FirstName, u.FirstName, FieldFirstName)
	set(&guest.LastName, u.LastName, FieldLastName)
	set(&guest.Email, u.Email, FieldEmail)
	set(&guest.Phone, u.Phone, FieldPhone)
	set(&guest.DateOfBirth, u.DateOfBirth, "date_of_birth")
	set(&guest.Nationality, u.Nationality, "nationality")
	set(&guest.IDNumber, u.IDNumber, "id_number")
	if u.IDType != nil {
		guest.IDType = *u.IDType
		touched = append(touched, "id_type")
	}

	if u.Address != nil {
		var addressFields []string
		guest.Address, addressFields = u.Address.apply(guest.Address)
		touched = append(touched, addressFields...)
	}

	return guest, touched
}

func (u AddressUpdate) apply(address booking.Address) (booking.Address, []string) {
	var touched []string
	set := func(target *string, value *string, field string) {
		if value != nil {
			*target = *value
			touched = append(touched, field)
		}
	}

	set(&address.Street, u.Street, FieldStreet)
	set(&address.City, u.City, FieldCity)
	set(&address.State, u.State, "state")
	set(&address.Country, u.Country, FieldCountry)
	set(&address.ZipCode, u.ZipCode, "zip_code")

	return address, touched
}
