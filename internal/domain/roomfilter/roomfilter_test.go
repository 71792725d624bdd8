package roomfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
)

func offer(id, name string, price float64, adults, children int, size float64, bed string, amenities ...string) booking.RoomOffer {
	return booking.RoomOffer{
		RoomTypeID:    id,
		PricePerNight: price,
		IsAvailable:   true,
		RoomType: booking.RoomType{
			ID:               id,
			Name:             name,
			Capacity:         booking.Occupancy{Adults: adults, Children: children},
			Size:             size,
			BedConfiguration: bed,
			Amenities:        amenities,
		},
	}
}

func testRooms() []booking.RoomOffer {
	return []booking.RoomOffer{
		offer("std", "Standard", 120.5, 2, 0, 22, "1 Queen Bed", "WiFi", "TV"),
		offer("dlx", "deluxe", 210, 2, 1, 35, "1 King Bed", "Free WiFi", "Minibar", "Ocean View"),
		offer("fam", "Family Suite", 340, 4, 2, 60, "2 Double Beds", "WiFi", "Kitchenette"),
		offer("eco", "Economy", 80, 1, 0, 15, "1 Single Bed"),
	}
}

func ids(rooms []booking.RoomOffer) []string {
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.RoomTypeID)
	}
	return out
}

func TestDefaultFiltersKeepEverythingSortedByPrice(t *testing.T) {
	got := Default().Apply(testRooms())
	assert.Equal(t, []string{"eco", "std", "dlx", "fam"}, ids(got))
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	rooms := testRooms()
	_ = Default().Apply(rooms)
	assert.Equal(t, testRooms(), rooms)
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Filters)
		want   []string
	}{
		{"price range", func(f *Filters) { f.PriceRange = PriceRange{Min: 100, Max: 250} }, []string{"std", "dlx"}},
		{"capacity", func(f *Filters) { f.Capacity = booking.Occupancy{Adults: 2, Children: 1} }, []string{"dlx", "fam"}},
		{"amenities case-insensitive substring", func(f *Filters) { f.Amenities = []string{"wifi"} }, []string{"std", "dlx", "fam"}},
		{"every amenity required", func(f *Filters) { f.Amenities = []string{"wifi", "minibar"} }, []string{"dlx"}},
		{"any bed type", func(f *Filters) { f.BedTypes = []string{"king", "single"} }, []string{"eco", "dlx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Default()
			tt.modify(&f)
			assert.Equal(t, tt.want, ids(f.Apply(testRooms())))
		})
	}
}

func TestApplySortOrders(t *testing.T) {
	tests := []struct {
		sort SortBy
		want []string
	}{
		{SortPriceLow, []string{"eco", "std", "dlx", "fam"}},
		{SortPriceHigh, []string{"fam", "dlx", "std", "eco"}},
		{SortCapacity, []string{"fam", "dlx", "std", "eco"}},
		{SortSize, []string{"fam", "dlx", "std", "eco"}},
		{SortName, []string{"dlx", "eco", "fam", "std"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			f := Default()
			f.SortBy = tt.sort
			assert.Equal(t, tt.want, ids(f.Apply(testRooms())))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	f := Default()
	f.SortBy = "rating"
	assert.ErrorIs(t, f.Validate(), ErrUnknownSort)
}

func TestOptionsFor(t *testing.T) {
	options := OptionsFor(testRooms())

	assert.Equal(t, []string{"Free WiFi", "Kitchenette", "Minibar", "Ocean View", "TV", "WiFi"}, options.Amenities)
	assert.Equal(t, []string{"1 King Bed", "1 Queen Bed", "1 Single Bed", "2 Double Beds"}, options.BedTypes)
	assert.Equal(t, PriceRange{Min: 80, Max: 340}, options.PriceRange)

	assert.Equal(t, PriceRange{}, OptionsFor(nil).PriceRange)
}

func TestReset(t *testing.T) {
	assert.Equal(t, Default(), Reset(OptionsFor(nil)))

	options := OptionsFor(testRooms())
	reset := Reset(options)
	assert.Equal(t, options.PriceRange, reset.PriceRange)
	assert.Equal(t, SortPriceLow, reset.SortBy)
}
