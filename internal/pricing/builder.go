// Package pricing builds unpersisted booking drafts: it resolves the room
// rate card and computes nights, subtotal, tax and total.
package pricing

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

var (
	ErrInvalidStay   = errors.New("check-out must be at least one night after check-in")
	ErrInvalidGuests = errors.New("guests must be at least 1")
	ErrTooManyGuests = errors.New("guest count exceeds room capacity")
	ErrUnknownRoom   = errors.New("unknown room type")
)

// DefaultTaxRate is the 12% VAT applied to every stay.
var DefaultTaxRate = decimal.RequireFromString("0.12")

const moneyScale = 2

// Request is the guest's selection on the booking form.
type Request struct {
	CheckIn  time.Time
	CheckOut time.Time
	RoomType string
	Guests   int
}

// Builder turns a Request into a priced draft.  It never writes anywhere.
type Builder struct {
	catalog Catalog
	taxRate decimal.Decimal
}

func NewBuilder(catalog Catalog, taxRate decimal.Decimal) *Builder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Builder{catalog: catalog, taxRate: taxRate}
}

func (b *Builder) Catalog() Catalog { return b.catalog }

// Nights returns the number of billable nights between two instants,
// rounding partial days up.
func Nights(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

// Quote prices the request for the given identity.  The returned booking
// has status pending_payment and no booking code yet.
func (b *Builder) Quote(req Request, who model.Identity) (model.Booking, error) {
	nights := Nights(req.CheckIn, req.CheckOut)
	if nights < 1 {
		return model.Booking{}, ErrInvalidStay
	}
	if req.Guests < 1 {
		return model.Booking{}, ErrInvalidGuests
	}
	room, ok := b.catalog.Room(req.RoomType)
	if !ok {
		return model.Booking{}, ErrUnknownRoom
	}
	if room.MaxGuests > 0 && req.Guests > room.MaxGuests {
		return model.Booking{}, ErrTooManyGuests
	}

	extra := req.Guests - room.BaseGuests
	if extra < 0 {
		extra = 0
	}
	perNight := room.BasePrice.Add(room.AdditionalGuestPrice.Mul(decimal.NewFromInt(int64(extra))))
	subtotal := perNight.Mul(decimal.NewFromInt(int64(nights))).Round(moneyScale)
	tax := subtotal.Mul(b.taxRate).Round(moneyScale)

	return model.Booking{
		UserID:               who.UserID,
		UserEmail:            who.Email,
		RoomType:             room.Type,
		RoomName:             room.Name,
		CheckIn:              req.CheckIn,
		CheckOut:             req.CheckOut,
		Guests:               req.Guests,
		Nights:               nights,
		BasePrice:            room.BasePrice,
		BaseGuests:           room.BaseGuests,
		AdditionalGuestPrice: room.AdditionalGuestPrice,
		RoomPricePerNight:    perNight,
		Subtotal:             subtotal,
		TaxRate:              b.taxRate,
		Tax:                  tax,
		TotalAmount:          subtotal.Add(tax),
		Status:               model.BookingPendingPayment,
		PaymentStatus:        model.PaymentUnpaid,
	}, nil
}
