package availability

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	d := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}

func TestNewDefaults(t *testing.T) {
	state := New("prop-1", now)

	require.NotNil(t, state.Criteria.CheckInDate)
	assert.Equal(t, *day(0), *state.Criteria.CheckInDate)
	assert.Nil(t, state.Criteria.CheckOutDate)
	assert.Equal(t, 2, state.Criteria.Adults)
	assert.Equal(t, 0, state.Criteria.Children)

	late := New("prop-1", time.Date(2026, 5, 4, 19, 15, 0, 0, time.UTC))
	assert.Equal(t, *day(1), *late.Criteria.CheckInDate)
}

func TestSetCheckInDateWithoutCheckOutSuggestsNextDay(t *testing.T) {
	for offset := 0; offset < 30; offset++ {
		state := New("prop-1", now).SetCheckOutDate(nil).SetCheckInDate(day(offset))

		require.NotNil(t, state.Criteria.CheckOutDate)
		assert.Equal(t, *day(offset + 1), *state.Criteria.CheckOutDate)
	}
}

func TestSetCheckInDateKeepsLaterCheckOut(t *testing.T) {
	state := New("prop-1", now).SetCheckOutDate(day(5)).SetCheckInDate(day(2))

	assert.Equal(t, *day(5), *state.Criteria.CheckOutDate)
}

func TestSetCheckInDateReplacesCheckOutNotStrictlyAfter(t *testing.T) {
	sameDay := New("prop-1", now).SetCheckOutDate(day(3)).SetCheckInDate(day(3))
	assert.Equal(t, *day(4), *sameDay.Criteria.CheckOutDate)

	earlier := New("prop-1", now).SetCheckOutDate(day(2)).SetCheckInDate(day(6))
	assert.Equal(t, *day(7), *earlier.Criteria.CheckOutDate)
}

func TestSetCheckInDateNormalizesTimeOfDay(t *testing.T) {
	withClock := time.Date(2026, 5, 6, 15, 45, 0, 0, time.UTC)

	state := New("prop-1", now).SetCheckInDate(&withClock)

	assert.Equal(t, *day(2), *state.Criteria.CheckInDate)
}

func TestCriteriaChangesInvalidateResult(t *testing.T) {
	searched := New("prop-1", now).SetCheckInDate(day(1)).SearchSucceeded(booking.AvailabilityResult{TotalNights: 1})
	failed := New("prop-1", now).BeginSearch().SearchFailed("boom")

	mutations := map[string]func(State) State{
		"check-in":  func(s State) State { return s.SetCheckInDate(day(2)) },
		"check-out": func(s State) State { return s.SetCheckOutDate(day(9)) },
		"guests":    func(s State) State { return s.SetGuests(3, 1) },
		"property":  func(s State) State { return s.SetProperty("prop-2") },
		"reset":     func(s State) State { return s.ResetAvailability() },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			require.NotNil(t, searched.Result)
			assert.Nil(t, mutate(searched).Result)
			assert.Empty(t, mutate(failed).Error)
		})
	}
}

func TestSetGuestsDoesNotEnforceUpperBound(t *testing.T) {
	state := New("prop-1", now).SetGuests(12, 9)

	assert.Equal(t, 12, state.Criteria.Adults)
	assert.Equal(t, 9, state.Criteria.Children)
}

func TestSearchLifecycle(t *testing.T) {
	state := New("prop-1", now).SetCheckInDate(day(1)).BeginSearch()
	assert.True(t, state.IsLoading)

	ok := state.SearchSucceeded(booking.AvailabilityResult{TotalNights: 1})
	assert.False(t, ok.IsLoading)
	require.NotNil(t, ok.Result)
	assert.Equal(t, 1, ok.Result.TotalNights)

	failed := state.SearchFailed("")
	assert.False(t, failed.IsLoading)
	assert.Equal(t, "Failed to check availability", failed.Error)
	assert.Empty(t, failed.ClearError().Error)
}

func TestOperationsDoNotMutateReceiver(t *testing.T) {
	original := New("prop-1", now)

	_ = original.SetCheckInDate(day(4)).SetGuests(1, 1).BeginSearch()

	assert.Equal(t, *day(0), *original.Criteria.CheckInDate)
	assert.Equal(t, 2, original.Criteria.Adults)
	assert.False(t, original.IsLoading)
}

func TestTotalNights(t *testing.T) {
	assert.Equal(t, 0, New("prop-1", now).TotalNights())
	assert.Equal(t, 3, New("prop-1", now).SetCheckOutDate(day(3)).TotalNights())
}

func TestValidateDateRange(t *testing.T) {
	policy := DefaultPolicy()

	for in := 0; in < 10; in++ {
		for out := in + 1; out < 12; out++ {
			result := ValidateDateRange(*day(in), *day(out), now, policy)
			assert.True(t, result.Valid, "check-in +%d check-out +%d", in, out)
		}
		for out := in - 3; out <= in; out++ {
			result := ValidateDateRange(*day(in), *day(out), now, policy)
			assert.False(t, result.Valid)
			assert.Equal(t, ReasonCheckOutNotAfterCheckIn, result.Reason)
			assert.NotEmpty(t, result.Message)
		}
	}

	past := ValidateDateRange(*day(-1), *day(2), now, policy)
	assert.False(t, past.Valid)
	assert.Equal(t, ReasonCheckInInPast, past.Reason)
}

func TestValidateDateRangeTodayIsAllowedLateInTheDay(t *testing.T) {
	lateEvening := time.Date(2026, 5, 4, 23, 59, 0, 0, time.UTC)

	assert.True(t, ValidateDateRange(*day(0), *day(1), lateEvening, DefaultPolicy()).Valid)
}

func TestValidateDateRangeMinimumStayPolicy(t *testing.T) {
	policy := Policy{MinimumStayNights: 2}

	short := ValidateDateRange(*day(1), *day(2), now, policy)
	assert.False(t, short.Valid)
	assert.Equal(t, ReasonMinimumStay, short.Reason)
	assert.Equal(t, "Minimum stay is 2 nights", short.Message)

	assert.True(t, ValidateDateRange(*day(1), *day(3), now, policy).Valid)
	assert.True(t, ValidateDateRange(*day(1), *day(2), now, Policy{}).Valid)
}

// Enumerates presence of property, check-in, check-out, date-range validity and adults >= 1.
func TestCanCheckAvailabilityCombinations(t *testing.T) {
	for mask := 0; mask < 32; mask++ {
		hasProperty := mask&1 != 0
		hasCheckIn := mask&2 != 0
		hasCheckOut := mask&4 != 0
		validRange := mask&8 != 0
		hasAdults := mask&16 != 0

		t.Run(fmt.Sprintf("mask-%02d", mask), func(t *testing.T) {
			state := State{}
			if hasProperty {
				state.Criteria.PropertyID = "prop-1"
			}
			checkIn, checkOut := day(2), day(4)
			if !validRange {
				checkIn, checkOut = day(4), day(2)
			}
			if hasCheckIn {
				state.Criteria.CheckInDate = checkIn
			}
			if hasCheckOut {
				state.Criteria.CheckOutDate = checkOut
			}
			if hasAdults {
				state.Criteria.Adults = 1
			}

			expected := hasProperty && hasCheckIn && hasCheckOut && validRange && hasAdults
			assert.Equal(t, expected, state.CanCheckAvailability(now, DefaultPolicy()))
		})
	}
}
