package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the ledger entry written together with every paid
// booking.  It is never mutated after creation.
type Transaction struct {
	ID            uint64          `json:"-"`
	TransactionID string          `json:"transaction_id"`
	BookingID     uint64          `json:"-"`
	BookingCode   string          `json:"booking_id"`
	UserID        uint64          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`   // always "booking" for now
	Status        string          `json:"status"` // always "completed" for now
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   time.Time       `json:"completed_at"`
}

const (
	TransactionTypeBooking     = "booking"
	TransactionStatusCompleted = "completed"
)
