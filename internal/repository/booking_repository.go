package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// BookingRepo stores paid bookings and their ledger transactions.  All
// timestamps are UTC.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, booking_code, idempotency_key, user_id, user_email, room_type, room_name,
	check_in, check_out, guests, nights, base_price, base_guests, additional_guest_price,
	room_price_per_night, subtotal, tax_rate, tax, total_amount, status, payment_status,
	payment_method, payment_details, booking_date, created_at, updated_at`

// CreateWithTransaction inserts the booking and its transaction in one SQL
// transaction.  Either both rows exist afterwards or neither does.  A
// reused idempotency key yields booking.ErrDuplicate.
func (r *BookingRepo) CreateWithTransaction(ctx context.Context, b *model.Booking, t *model.Transaction) error {
	details, err := json.Marshal(b.PaymentDetails)
	if err != nil {
		return fmt.Errorf("encode payment details: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const insBooking = `INSERT INTO bookings (booking_code, idempotency_key, user_id, user_email, room_type, room_name,
		check_in, check_out, guests, nights, base_price, base_guests, additional_guest_price,
		room_price_per_night, subtotal, tax_rate, tax, total_amount, status, payment_status,
		payment_method, payment_details, booking_date, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, insBooking,
		b.BookingID, b.IdempotencyKey, b.UserID, b.UserEmail, b.RoomType, b.RoomName,
		b.CheckIn, b.CheckOut, b.Guests, b.Nights, b.BasePrice, b.BaseGuests, b.AdditionalGuestPrice,
		b.RoomPricePerNight, b.Subtotal, b.TaxRate, b.Tax, b.TotalAmount, string(b.Status), string(b.PaymentStatus),
		string(b.PaymentMethod), details, b.BookingDate, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isDuplicate(err, "idempotency_key") {
			return booking.ErrDuplicate
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	const insTx = `INSERT INTO transactions (transaction_id, booking_id, user_id, amount, type, status, payment_method, created_at, completed_at)
		VALUES (?,?,?,?,?,?,?,?,?)`
	res, err = tx.ExecContext(ctx, insTx,
		t.TransactionID, uint64(id), t.UserID, t.Amount, t.Type, t.Status, string(t.PaymentMethod), t.CreatedAt, t.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	txID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	b.ID = uint64(id)
	t.ID = uint64(txID)
	t.BookingID = b.ID
	t.BookingCode = b.BookingID
	return nil
}

func (r *BookingRepo) GetByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE idempotency_key=? LIMIT 1`, key)
	return oneBooking(row)
}

// GetByCodeForUser only returns the booking when it belongs to userID.
func (r *BookingRepo) GetByCodeForUser(ctx context.Context, userID uint64, code string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_code=? AND user_id=? LIMIT 1`, code, userID)
	return oneBooking(row)
}

// ListByUser returns every booking owned by userID, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id=? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func oneBooking(row *sql.Row) (*model.Booking, error) {
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	return b, err
}

func scanBooking(s scanner) (*model.Booking, error) {
	var (
		b                         model.Booking
		status, payStatus, method string
		details                   []byte
	)
	err := s.Scan(
		&b.ID, &b.BookingID, &b.IdempotencyKey, &b.UserID, &b.UserEmail, &b.RoomType, &b.RoomName,
		&b.CheckIn, &b.CheckOut, &b.Guests, &b.Nights, &b.BasePrice, &b.BaseGuests, &b.AdditionalGuestPrice,
		&b.RoomPricePerNight, &b.Subtotal, &b.TaxRate, &b.Tax, &b.TotalAmount, &status, &payStatus,
		&method, &details, &b.BookingDate, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.PaymentStatus = model.PaymentStatus(payStatus)
	b.PaymentMethod = model.PaymentMethod(method)
	if len(details) > 0 && string(details) != "null" {
		var d model.PaymentDetails
		if err := json.Unmarshal(details, &d); err != nil {
			return nil, fmt.Errorf("decode payment details: %w", err)
		}
		b.PaymentDetails = &d
	}
	return &b, nil
}
