package adapter

import (
	"fmt"
	"time"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	apimodels "github.com/victoragudo/hotel-management-system/booking-service/pkg/api-models"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/dateutil"
)

func toAPIOccupancy(o booking.Occupancy) apimodels.Occupancy {
	return apimodels.Occupancy{Adults: o.Adults, Children: o.Children}
}

func fromAPIOccupancy(o apimodels.Occupancy) booking.Occupancy {
	return booking.Occupancy{Adults: o.Adults, Children: o.Children}
}

func toAvailabilityRequest(query booking.AvailabilityQuery) apimodels.AvailabilityRequest {
	return apimodels.AvailabilityRequest{
		BusinessUnitID: query.PropertyID,
		CheckInDate:    dateutil.ToAPIFormat(query.CheckInDate),
		CheckOutDate:   dateutil.ToAPIFormat(query.CheckOutDate),
		Guests:         toAPIOccupancy(query.Guests),
	}
}

func fromAPIRoomType(r apimodels.RoomType) booking.RoomType {
	return booking.RoomType{
		ID:               r.ID,
		PropertyID:       r.BusinessUnitID,
		Name:             r.Name,
		Description:      r.Description,
		Capacity:         fromAPIOccupancy(r.Capacity),
		BedConfiguration: r.BedConfiguration,
		Size:             r.Size,
		Images:           r.Images,
		Amenities:        r.Amenities,
		BasePrice:        r.BasePrice,
		Currency:         r.Currency,
	}
}

func fromAPIRoomAvailability(r apimodels.RoomAvailability) booking.RoomOffer {
	return booking.RoomOffer{
		RoomTypeID:     r.RoomTypeID,
		RoomType:       fromAPIRoomType(r.RoomType),
		AvailableCount: r.AvailableRooms,
		PricePerNight:  r.PricePerNight,
		TotalPrice:     r.TotalPrice,
		Taxes:          r.Taxes,
		Fees:           r.Fees,
		FinalPrice:     r.FinalPrice,
		Currency:       r.Currency,
		IsAvailable:    r.IsAvailable,
		Restrictions:   r.Restrictions,
	}
}

func fromAPIAvailability(r apimodels.AvailabilityResponse) (*booking.AvailabilityResult, error) {
	checkIn, err := dateutil.ParseAPIDate(r.CheckInDate)
	if err != nil {
		return nil, fmt.Errorf("invalid check-in date in availability response: %w", err)
	}
	checkOut, err := dateutil.ParseAPIDate(r.CheckOutDate)
	if err != nil {
		return nil, fmt.Errorf("invalid check-out date in availability response: %w", err)
	}

	rooms := make([]booking.RoomOffer, 0, len(r.AvailableRooms))
	for _, room := range r.AvailableRooms {
		rooms = append(rooms, fromAPIRoomAvailability(room))
	}

	unit := r.BusinessUnit
	return &booking.AvailabilityResult{
		Property: booking.Property{
			ID:           unit.ID,
			Name:         unit.Name,
			Slug:         unit.Slug,
			Description:  unit.Description,
			Address:      unit.Address,
			Phone:        unit.Phone,
			Email:        unit.Email,
			Images:       unit.Images,
			Amenities:    unit.Amenities,
			CheckInTime:  unit.CheckInTime,
			CheckOutTime: unit.CheckOutTime,
		},
		CheckInDate:  checkIn,
		CheckOutDate: checkOut,
		TotalNights:  r.TotalNights,
		Rooms:        rooms,
	}, nil
}

func toAPIAddress(a booking.Address) apimodels.Address {
	return apimodels.Address{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		Country: a.Country,
		ZipCode: a.ZipCode,
	}
}

func fromAPIAddress(a apimodels.Address) booking.Address {
	return booking.Address{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		Country: a.Country,
		ZipCode: a.ZipCode,
	}
}

func toAPIGuest(g booking.GuestProfile) apimodels.Guest {
	return apimodels.Guest{
		ID:          g.ID,
		FirstName:   g.FirstName,
		LastName:    g.LastName,
		Email:       g.Email,
		Phone:       g.Phone,
		Address:     toAPIAddress(g.Address),
		DateOfBirth: g.DateOfBirth,
		Nationality: g.Nationality,
		IDType:      string(g.IDType),
		IDNumber:    g.IDNumber,
	}
}

func fromAPIGuest(g apimodels.Guest) booking.GuestProfile {
	return booking.GuestProfile{
		ID:          g.ID,
		FirstName:   g.FirstName,
		LastName:    g.LastName,
		Email:       g.Email,
		Phone:       g.Phone,
		Address:     fromAPIAddress(g.Address),
		DateOfBirth: g.DateOfBirth,
		Nationality: g.Nationality,
		IDType:      booking.IDType(g.IDType),
		IDNumber:    g.IDNumber,
	}
}

func toReservationRequest(request booking.ReservationRequest) apimodels.CreateReservationRequest {
	b := request.Booking
	return apimodels.CreateReservationRequest{
		BusinessUnitID:  b.PropertyID,
		RoomTypeID:      b.RoomTypeID,
		CheckInDate:     dateutil.ToAPIFormat(b.CheckInDate),
		CheckOutDate:    dateutil.ToAPIFormat(b.CheckOutDate),
		Guests:          toAPIOccupancy(b.Guests),
		SpecialRequests: b.SpecialRequests,
		Guest:           toAPIGuest(request.Guest),
	}
}

// parseTimestamp accepts an empty value as the zero time.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

func fromAPIReservation(r apimodels.Reservation) (*booking.Reservation, error) {
	checkIn, err := dateutil.ParseAPIDate(r.CheckInDate)
	if err != nil {
		return nil, fmt.Errorf("invalid check-in date in reservation %s: %w", r.ID, err)
	}
	checkOut, err := dateutil.ParseAPIDate(r.CheckOutDate)
	if err != nil {
		return nil, fmt.Errorf("invalid check-out date in reservation %s: %w", r.ID, err)
	}
	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt in reservation %s: %w", r.ID, err)
	}
	updatedAt, err := parseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid updatedAt in reservation %s: %w", r.ID, err)
	}

	return &booking.Reservation{
		ID:              r.ID,
		PropertyID:      r.BusinessUnitID,
		RoomID:          r.RoomID,
		RoomType:        fromAPIRoomType(r.RoomType),
		CheckInDate:     checkIn,
		CheckOutDate:    checkOut,
		Guests:          fromAPIOccupancy(r.Guests),
		TotalNights:     r.TotalNights,
		BaseAmount:      r.BaseAmount,
		Taxes:           r.Taxes,
		Fees:            r.Fees,
		TotalAmount:     r.TotalAmount,
		Currency:        r.Currency,
		Status:          booking.ReservationStatus(r.Status),
		Guest:           fromAPIGuest(r.Guest),
		SpecialRequests: r.SpecialRequests,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

func toPaymentRequest(request booking.PaymentRequest) apimodels.ProcessPaymentRequest {
	details := apimodels.PaymentDetails{Method: string(request.Method)}
	if request.Card != nil {
		details.CardNumber = request.Card.CardNumber
		details.ExpiryMonth = request.Card.ExpiryMonth
		details.ExpiryYear = request.Card.ExpiryYear
		details.CVV = request.Card.CVV
		details.CardHolderName = request.Card.CardHolderName
	}
	if request.BillingAddress != nil {
		address := toAPIAddress(*request.BillingAddress)
		details.BillingAddress = &address
	}
	return apimodels.ProcessPaymentRequest{
		ReservationID:  request.ReservationID,
		PaymentDetails: details,
	}
}
