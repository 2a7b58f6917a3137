// Package feed relays store changes to live subscribers.  Every mutation of
// a ticket or notification is published on a topic; admin consoles hold a
// subscription open and receive the changed document as JSON.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

const (
	TopicTickets       = "tickets"
	TopicNotifications = "notifications"
)

// Broker publishes documents and hands out subscriptions.  A subscription
// channel is closed when ctx is cancelled.
type Broker interface {
	Publish(ctx context.Context, topic string, v any) error
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}

const subscriberBuffer = 16

// LocalBroker fans out in-process.  Slow subscribers drop messages rather
// than block publishers.
type LocalBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string]map[chan []byte]struct{})}
}

func (b *LocalBroker) Publish(_ context.Context, topic string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[topic] {
		select {
		case ch <- body:
		default:
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[topic], ch)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
