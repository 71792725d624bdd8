// Package roomfilter narrows and orders the room offers of an availability result.
package roomfilter

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"strings"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
)

type SortBy string

const (
	SortPriceLow  SortBy = "price-low"
	SortPriceHigh SortBy = "price-high"
	SortCapacity  SortBy = "capacity"
	SortSize      SortBy = "size"
	SortName      SortBy = "name"
)

const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 10000
)

var ErrUnknownSort = errors.New("unknown sort order")

func (s SortBy) IsValid() bool {
	switch s {
	case SortPriceLow, SortPriceHigh, SortCapacity, SortSize, SortName:
		return true
	}
	return false
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Filters struct {
	PriceRange PriceRange        `json:"price_range"`
	Capacity   booking.Occupancy `json:"capacity"`
	Amenities  []string          `json:"amenities,omitempty"`
	BedTypes   []string          `json:"bed_types,omitempty"`
	SortBy     SortBy            `json:"sort_by"`
}

func Default() Filters {
	return Filters{
		PriceRange: PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice},
		Capacity:   booking.Occupancy{Adults: 1},
		SortBy:     SortPriceLow,
	}
}

func (f Filters) Validate() error {
	if !f.SortBy.IsValid() {
		return ErrUnknownSort
	}
	return nil
}

// Apply returns the offers matching every filter, ordered by SortBy. The input slice is
// not modified.
func (f Filters) Apply(rooms []booking.RoomOffer) []booking.RoomOffer {
	filtered := make([]booking.RoomOffer, 0, len(rooms))
	for _, room := range rooms {
		if f.matches(room) {
			filtered = append(filtered, room)
		}
	}

	slices.SortStableFunc(filtered, f.compare)
	return filtered
}

func (f Filters) matches(room booking.RoomOffer) bool {
	if room.PricePerNight < f.PriceRange.Min || room.PricePerNight > f.PriceRange.Max {
		return false
	}
	if room.RoomType.Capacity.Total() < f.Capacity.Total() {
		return false
	}

	for _, wanted := range f.Amenities {
		if !slices.ContainsFunc(room.RoomType.Amenities, func(amenity string) bool {
			return containsFold(amenity, wanted)
		}) {
			return false
		}
	}

	if len(f.BedTypes) > 0 && !slices.ContainsFunc(f.BedTypes, func(bed string) bool {
		return containsFold(room.RoomType.BedConfiguration, bed)
	}) {
		return false
	}

	return true
}

func (f Filters) compare(a, b booking.RoomOffer) int {
	switch f.SortBy {
	case SortPriceLow:
		return cmp.Compare(a.PricePerNight, b.PricePerNight)
	case SortPriceHigh:
		return cmp.Compare(b.PricePerNight, a.PricePerNight)
	case SortCapacity:
		return cmp.Compare(b.RoomType.Capacity.Total(), a.RoomType.Capacity.Total())
	case SortSize:
		return cmp.Compare(b.RoomType.Size, a.RoomType.Size)
	case SortName:
		return strings.Compare(strings.ToLower(a.RoomType.Name), strings.ToLower(b.RoomType.Name))
	default:
		return 0
	}
}

func containsFold(value, substr string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(substr))
}

// Options describes what the current offers make available for filtering.
type Options struct {
	Amenities  []string   `json:"amenities"`
	BedTypes   []string   `json:"bed_types"`
	PriceRange PriceRange `json:"price_range"`
}

func OptionsFor(rooms []booking.RoomOffer) Options {
	var amenities, bedTypes []string
	minPrice, maxPrice := math.Inf(1), 0.0

	for _, room := range rooms {
		amenities = append(amenities, room.RoomType.Amenities...)
		if room.RoomType.BedConfiguration != "" {
			bedTypes = append(bedTypes, room.RoomType.BedConfiguration)
		}
		minPrice = math.Min(minPrice, room.PricePerNight)
		maxPrice = math.Max(maxPrice, room.PricePerNight)
	}

	slices.Sort(amenities)
	slices.Sort(bedTypes)

	if math.IsInf(minPrice, 1) {
		minPrice = 0
	}

	return Options{
		Amenities:  slices.Compact(amenities),
		BedTypes:   slices.Compact(bedTypes),
		PriceRange: PriceRange{Min: math.Floor(minPrice), Max: math.Ceil(maxPrice)},
	}
}

// Reset returns the default filters, keeping the discovered price range when the offers
// have a non-zero minimum price.
func Reset(options Options) Filters {
	filters := Default()
	if options.PriceRange.Min > 0 {
		filters.PriceRange = options.PriceRange
	}
	return filters
}
