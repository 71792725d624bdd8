// Package dateutil holds the calendar-date helpers shared by the booking flow.
//
// Calendar dates are represented as time.Time values at midnight UTC. Use DateOf to
// normalise any instant to its calendar date in the instant's own location.
package dateutil

import (
	"fmt"
	"time"
)

const (
	APILayout     = "2006-01-02"
	DisplayLayout = "Jan 02, 2006"

	// Check-ins requested at or after this local hour default to the next day.
	lateCheckInHour = 18
)

func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Today(now time.Time) time.Time {
	return DateOf(now)
}

func AddDays(date time.Time, days int) time.Time {
	return DateOf(date).AddDate(0, 0, days)
}

func ToAPIFormat(date time.Time) string {
	return DateOf(date).Format(APILayout)
}

func ToDisplayFormat(date time.Time) string {
	return DateOf(date).Format(DisplayLayout)
}

func ParseAPIDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(APILayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid calendar date %q: %w", value, err)
	}
	return parsed, nil
}

// CalculateNights returns the calendar-day difference between check-out and check-in.
func CalculateNights(checkIn, checkOut time.Time) int {
	return int(DateOf(checkOut).Sub(DateOf(checkIn)).Hours() / 24)
}

// NextAvailableCheckIn returns today, or tomorrow once local time has passed 18:00.
func NextAvailableCheckIn(now time.Time) time.Time {
	if now.Hour() >= lateCheckInHour {
		return AddDays(DateOf(now), 1)
	}
	return DateOf(now)
}

func SuggestedCheckOut(checkIn time.Time) time.Time {
	return AddDays(checkIn, 1)
}

// DateRange enumerates every calendar date from start to end, both inclusive.
func DateRange(start, end time.Time) []time.Time {
	var dates []time.Time
	for current := DateOf(start); !current.After(DateOf(end)); current = current.AddDate(0, 0, 1) {
		dates = append(dates, current)
	}
	return dates
}

func IsWeekend(date time.Time) bool {
	weekday := DateOf(date).Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}
