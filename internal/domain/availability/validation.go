package availability

import (
	"fmt"
	"time"

	"github.com/victoragudo/hotel-management-system/booking-service/pkg/dateutil"
)

type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonMissingDates            Reason = "missing-dates"
	ReasonCheckInInPast           Reason = "check-in-in-past"
	ReasonCheckOutNotAfterCheckIn Reason = "check-out-not-after-check-in"
	ReasonMinimumStay             Reason = "minimum-stay"
)

// Policy holds the stay rules applied on top of the calendar checks.
// MinimumStayNights of 1 is already implied by the check-out-after-check-in rule.
type Policy struct {
	MinimumStayNights int `json:"minimum_stay_nights"`
}

func DefaultPolicy() Policy {
	return Policy{MinimumStayNights: 1}
}

type DateRangeValidation struct {
	Valid   bool   `json:"valid"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// ValidateDateRange has no side effects. now must be expressed in the property's local time.
func ValidateDateRange(checkIn, checkOut, now time.Time, policy Policy) DateRangeValidation {
	checkIn = dateutil.DateOf(checkIn)
	checkOut = dateutil.DateOf(checkOut)

	if checkIn.Before(dateutil.Today(now)) {
		return DateRangeValidation{Reason: ReasonCheckInInPast, Message: "Check-in date cannot be in the past"}
	}

	if !checkOut.After(checkIn) {
		return DateRangeValidation{Reason: ReasonCheckOutNotAfterCheckIn, Message: "Check-out date must be after check-in date"}
	}

	minimumStay := policy.MinimumStayNights
	if minimumStay < 1 {
		minimumStay = 1
	}
	if dateutil.CalculateNights(checkIn, checkOut) < minimumStay {
		unit := "nights"
		if minimumStay == 1 {
			unit = "night"
		}
		return DateRangeValidation{Reason: ReasonMinimumStay, Message: fmt.Sprintf("Minimum stay is %d %s", minimumStay, unit)}
	}

	return DateRangeValidation{Valid: true}
}
