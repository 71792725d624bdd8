package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAvailableCheckIn(t *testing.T) {
	morning := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), NextAvailableCheckIn(morning))
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), NextAvailableCheckIn(evening))
}

func TestNextAvailableCheckInUsesLocalClock(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	// 11:00 UTC is 19:00 in Manila.
	now := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC).In(manila)

	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), NextAvailableCheckIn(now))
}

func TestCalculateNights(t *testing.T) {
	checkIn := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, CalculateNights(checkIn, checkIn.AddDate(0, 0, 1)))
	assert.Equal(t, 7, CalculateNights(checkIn, checkIn.AddDate(0, 0, 7)))
	assert.Equal(t, 0, CalculateNights(checkIn, checkIn))
	assert.Equal(t, -2, CalculateNights(checkIn, checkIn.AddDate(0, 0, -2)))
}

func TestCalculateNightsAcrossMonthBoundary(t *testing.T) {
	checkIn := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, CalculateNights(checkIn, checkOut))
}

func TestAPIFormatRoundTrip(t *testing.T) {
	parsed, err := ParseAPIDate("2026-12-31")
	require.NoError(t, err)

	assert.Equal(t, "2026-12-31", ToAPIFormat(parsed))
	assert.Equal(t, "Dec 31, 2026", ToDisplayFormat(parsed))

	_, err = ParseAPIDate("31/12/2026")
	assert.Error(t, err)
}

func TestDateRangeIsInclusive(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	dates := DateRange(start, start.AddDate(0, 0, 2))

	require.Len(t, dates, 3)
	assert.Equal(t, start.AddDate(0, 0, 2), dates[2])
	assert.Empty(t, DateRange(start, start.AddDate(0, 0, -1)))
}

func TestIsWeekend(t *testing.T) {
	saturday := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsWeekend(saturday))
	assert.True(t, IsWeekend(saturday.AddDate(0, 0, 1)))
	assert.False(t, IsWeekend(saturday.AddDate(0, 0, 2)))
}
