package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/application/usecase"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/bookingflow"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/checkout"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/roomfilter"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/dateutil"
)

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

type CreateSessionRequest struct {
	PropertyID string `json:"property_id" validate:"required"`
}

// SearchRequest updates the search criteria. Dates use the yyyy-mm-dd format.
type SearchRequest struct {
	PropertyID   *string `json:"property_id,omitempty"`
	CheckInDate  *string `json:"check_in_date,omitempty"`
	CheckOutDate *string `json:"check_out_date,omitempty"`
	Adults       *int    `json:"adults,omitempty"`
	Children     *int    `json:"children,omitempty"`
}

type SelectRoomRequest struct {
	RoomTypeID string `json:"room_type_id" validate:"required"`
}

type PreferencesRequest struct {
	SpecialRequests *string `json:"special_requests,omitempty"`
	AgreedToTerms   *bool   `json:"agreed_to_terms,omitempty"`
}

// StepRequest names either a target step or a direction, never both.
type StepRequest struct {
	Step      string `json:"step,omitempty" validate:"omitempty,oneof=room-selection guest-info preferences review confirmation"`
	Direction string `json:"direction,omitempty" validate:"omitempty,oneof=next back"`
}

var errStepOrDirection = errors.New("exactly one of step or direction is required")

type PaymentRequest struct {
	Method  *booking.PaymentMethod         `json:"method,omitempty"`
	Details *checkout.PaymentDetailsUpdate `json:"details,omitempty"`
	Billing *checkout.BillingAddressUpdate `json:"billing,omitempty"`
}

var errEmptyBody = errors.New("request body is required")

// decodeJSON reads the body into target. An empty body is an error only when required.
func decodeJSON(r *http.Request, target any, required bool) error {
	if r.Body == nil {
		if required {
			return errEmptyBody
		}
		return nil
	}

	err := json.NewDecoder(r.Body).Decode(target)
	switch {
	case errors.Is(err, io.EOF):
		if required {
			return errEmptyBody
		}
		return nil
	case err != nil:
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func validate(request any) error {
	if err := requestValidator.Struct(request); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			messages := make([]string, 0, len(fieldErrors))
			for _, fe := range fieldErrors {
				messages = append(messages, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			return errors.New(strings.Join(messages, "; "))
		}
		return err
	}
	return nil
}

func parseDate(value *string, field string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	date, err := dateutil.ParseAPIDate(*value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &date, nil
}

func (req SearchRequest) toUpdate() (usecase.SearchUpdate, error) {
	checkIn, err := parseDate(req.CheckInDate, "check_in_date")
	if err != nil {
		return usecase.SearchUpdate{}, err
	}
	checkOut, err := parseDate(req.CheckOutDate, "check_out_date")
	if err != nil {
		return usecase.SearchUpdate{}, err
	}

	update := usecase.SearchUpdate{
		CheckInDate:  checkIn,
		CheckOutDate: checkOut,
		Adults:       req.Adults,
		Children:     req.Children,
	}
	if req.PropertyID != nil {
		propertyID := strings.TrimSpace(*req.PropertyID)
		update.PropertyID = &propertyID
	}
	return update, nil
}

func (req StepRequest) toChange() usecase.StepChange {
	return usecase.StepChange{
		Step:      bookingflow.Step(req.Step),
		Direction: usecase.Direction(req.Direction),
	}
}

func (req PaymentRequest) toUpdate() usecase.PaymentUpdate {
	return usecase.PaymentUpdate{
		Method:  req.Method,
		Details: req.Details,
		Billing: req.Billing,
	}
}

// parseRoomFilters starts from the default filters and applies the query parameters
// present. Unparseable numbers are ignored.
func parseRoomFilters(r *http.Request) roomfilter.Filters {
	query := r.URL.Query()
	filters := roomfilter.Default()

	if priceMin := query.Get("price_min"); priceMin != "" {
		if val, err := strconv.ParseFloat(priceMin, 64); err == nil {
			filters.PriceRange.Min = val
		}
	}

	if priceMax := query.Get("price_max"); priceMax != "" {
		if val, err := strconv.ParseFloat(priceMax, 64); err == nil {
			filters.PriceRange.Max = val
		}
	}

	if adults := query.Get("adults"); adults != "" {
		if val, err := strconv.Atoi(adults); err == nil {
			filters.Capacity.Adults = val
		}
	}

	if children := query.Get("children"); children != "" {
		if val, err := strconv.Atoi(children); err == nil {
			filters.Capacity.Children = val
		}
	}

	if sortBy := query.Get("sort_by"); sortBy != "" {
		filters.SortBy = roomfilter.SortBy(sortBy)
	}

	filters.Amenities = query["amenities"]
	filters.BedTypes = query["bed_types"]

	return filters
}
