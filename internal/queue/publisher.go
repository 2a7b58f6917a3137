package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends receipts to the ReceiptQueue.  A connection is dialled
// per publish; receipts are rare enough that pooling is not worth the
// reconnect bookkeeping.
type Publisher struct {
	url string
	log logrus.FieldLogger
}

func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishReceipt never panics; errors are logged and returned so the caller
// can ignore them.  Messages are persistent.
func (p *Publisher) PublishReceipt(ctx context.Context, ev ReceiptEvent) error {
	l := p.log.WithField("booking_id", ev.BookingID)
	conn, err := amqp.Dial(p.url)
	if err != nil {
		l.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		l.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(ReceiptQueue, true, false, false, false, nil); err != nil {
		l.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.TransactionID,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ReceiptQueue, false, false, pub); err != nil {
		l.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	l.Debug("receipt published")
	return nil
}
