package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Notifier records a back-office notification.
type Notifier interface {
	Notify(ctx context.Context, title, message, kind string) error
}

// Consumer drains the ReceiptQueue.  Each receipt is appended as one line
// to <LogDir>/booking.log and raised as a "booking" notification.
type Consumer struct {
	url      string
	logDir   string
	notifier Notifier
	log      logrus.FieldLogger
}

func NewConsumer(url, logDir string, notifier Notifier, log logrus.FieldLogger) *Consumer {
	if logDir == "" {
		logDir = "logs"
	}
	return &Consumer{url: url, logDir: logDir, notifier: notifier, log: log}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("booking-consumer: dial failed; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("booking-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("booking-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(ReceiptQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, ReceiptQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.Handle(ctx, d.Body); err != nil {
			c.log.WithError(err).Warn("booking-consumer: handle message failed")
			_ = d.Nack(false, false) // no requeue, avoids a poison loop
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle processes one delivery body.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev ReceiptEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BookingID == "" {
		return errors.New("receipt without booking id")
	}
	if err := c.appendLog(ev); err != nil {
		return err
	}
	msg := fmt.Sprintf("%s booked %s, %s to %s (%d night(s)), total %s via %s",
		ev.UserEmail, ev.RoomName, ev.CheckIn, ev.CheckOut, ev.Nights, ev.TotalAmount, ev.PaymentMethod)
	if err := c.notifier.Notify(ctx, "Booking "+ev.BookingID+" confirmed", msg, "booking"); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (c *Consumer) appendLog(ev ReceiptEvent) error {
	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%s | transaction_id=%s | user_id=%d | room=%q | check_in=%s | check_out=%s | guests=%d | total=%s | method=%s\n",
		ev.ConfirmedAt, ev.BookingID, ev.TransactionID, ev.UserID, ev.RoomName, ev.CheckIn, ev.CheckOut, ev.Guests, ev.TotalAmount, ev.PaymentMethod)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
