package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a reservation.
type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "pending_payment"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingCancelled      BookingStatus = "cancelled"
	BookingCompleted      BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type PaymentMethod string

const (
	MethodGCash PaymentMethod = "gcash"
	MethodCard  PaymentMethod = "card"
)

// PaymentDetails holds the redacted, method-specific fields kept after a
// successful payment.  Raw card numbers and CVVs are never stored.
type PaymentDetails struct {
	AccountName string    `json:"account_name,omitempty"` // gcash
	PhoneLast4  string    `json:"phone_last4,omitempty"`  // gcash
	Cardholder  string    `json:"cardholder,omitempty"`   // card
	CardLast4   string    `json:"card_last4,omitempty"`   // card
	Expiry      string    `json:"expiry,omitempty"`       // card
	PaidAt      time.Time `json:"paid_at"`
}

// Booking is one hotel reservation.  A Booking only reaches the bookings
// table once its payment has been accepted; while Status is
// BookingPendingPayment it lives in the draft store.
//
// Invariants: TotalAmount = Subtotal + Tax and
// Subtotal = Nights * (BasePrice + max(0, Guests-BaseGuests) * AdditionalGuestPrice).
type Booking struct {
	ID                   uint64          `json:"-"`
	BookingID            string          `json:"booking_id"` // human readable code, e.g. HB-20261016-3F9A1C
	IdempotencyKey       string          `json:"idempotency_key"`
	UserID               uint64          `json:"user_id"`
	UserEmail            string          `json:"user_email"`
	RoomType             string          `json:"room_type"`
	RoomName             string          `json:"room_name"`
	CheckIn              time.Time       `json:"check_in"`
	CheckOut             time.Time       `json:"check_out"`
	Guests               int             `json:"guests"`
	Nights               int             `json:"nights"`
	BasePrice            decimal.Decimal `json:"base_price"`
	BaseGuests           int             `json:"base_guests"`
	AdditionalGuestPrice decimal.Decimal `json:"additional_guest_price"`
	RoomPricePerNight    decimal.Decimal `json:"room_price_per_night"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	TaxRate              decimal.Decimal `json:"tax_rate"`
	Tax                  decimal.Decimal `json:"tax"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	Status               BookingStatus   `json:"status"`
	PaymentStatus        PaymentStatus   `json:"payment_status"`
	PaymentMethod        PaymentMethod   `json:"payment_method,omitempty"`
	PaymentDetails       *PaymentDetails `json:"payment_details,omitempty"`
	BookingDate          string          `json:"booking_date,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
