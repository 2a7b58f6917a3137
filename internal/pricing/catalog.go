package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Room describes the rate card of one bookable room type.
type Room struct {
	Type                 string          `json:"type"`
	Name                 string          `json:"name"`
	BasePrice            decimal.Decimal `json:"base_price"`
	BaseGuests           int             `json:"base_guests"`
	AdditionalGuestPrice decimal.Decimal `json:"additional_guest_price"`
	MaxGuests            int             `json:"max_guests"`
}

// Catalog resolves room type keys to rate cards.
type Catalog interface {
	Room(roomType string) (Room, bool)
	Rooms() []Room
}

// StaticCatalog is an in-memory catalog keyed by room type.
type StaticCatalog map[string]Room

func (c StaticCatalog) Room(roomType string) (Room, bool) {
	r, ok := c[roomType]
	return r, ok
}

// Rooms returns the catalog ordered by base price, cheapest first.
func (c StaticCatalog) Rooms() []Room {
	out := make([]Room, 0, len(c))
	for _, r := range c {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BasePrice.Equal(out[j].BasePrice) {
			return out[i].BasePrice.LessThan(out[j].BasePrice)
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// DefaultCatalog is the property's published rate card (PHP per night).
func DefaultCatalog() StaticCatalog {
	return StaticCatalog{
		"standard": {
			Type: "standard", Name: "Standard Room",
			BasePrice: decimal.NewFromInt(2500), BaseGuests: 2,
			AdditionalGuestPrice: decimal.NewFromInt(500), MaxGuests: 3,
		},
		"deluxe": {
			Type: "deluxe", Name: "Deluxe Room",
			BasePrice: decimal.NewFromInt(3500), BaseGuests: 2,
			AdditionalGuestPrice: decimal.NewFromInt(700), MaxGuests: 4,
		},
		"family": {
			Type: "family", Name: "Family Room",
			BasePrice: decimal.NewFromInt(4500), BaseGuests: 4,
			AdditionalGuestPrice: decimal.NewFromInt(600), MaxGuests: 6,
		},
		"suite": {
			Type: "suite", Name: "Executive Suite",
			BasePrice: decimal.NewFromInt(5500), BaseGuests: 2,
			AdditionalGuestPrice: decimal.NewFromInt(1000), MaxGuests: 4,
		},
	}
}
