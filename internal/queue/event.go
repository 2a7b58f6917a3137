// Package queue carries booking receipts over RabbitMQ.
package queue

import (
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// ReceiptQueue is the durable queue booking receipts are published to.
const ReceiptQueue = "booking.confirmed"

// ReceiptEvent is published once per committed booking.  It carries enough
// for downstream consumers to log and notify without reading the database.
type ReceiptEvent struct {
	BookingID     string `json:"booking_id"`
	TransactionID string `json:"transaction_id"`
	UserID        uint64 `json:"user_id"`
	UserEmail     string `json:"user_email"`
	RoomName      string `json:"room_name"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Nights        int    `json:"nights"`
	Guests        int    `json:"guests"`
	TotalAmount   string `json:"total_amount"`
	PaymentMethod string `json:"payment_method"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// NewReceipt builds the event for a committed booking.
func NewReceipt(b model.Booking, tx model.Transaction) ReceiptEvent {
	return ReceiptEvent{
		BookingID:     b.BookingID,
		TransactionID: tx.TransactionID,
		UserID:        b.UserID,
		UserEmail:     b.UserEmail,
		RoomName:      b.RoomName,
		CheckIn:       b.CheckIn.Format(time.DateOnly),
		CheckOut:      b.CheckOut.Format(time.DateOnly),
		Nights:        b.Nights,
		Guests:        b.Guests,
		TotalAmount:   b.TotalAmount.StringFixed(2),
		PaymentMethod: string(b.PaymentMethod),
		ConfirmedAt:   tx.CompletedAt.UTC().Format(time.RFC3339),
	}
}
