// Package draft keeps priced-but-unpaid bookings between the quote and
// payment steps.  A draft is valid while now - CreatedAt < TTL; validity is
// decided when the draft is read, and an expired draft is evicted and never
// handed back.
package draft

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// DefaultTTL is the pending-payment window.
const DefaultTTL = 30 * time.Minute

var (
	ErrNotFound = errors.New("draft not found")
	ErrExpired  = errors.New("draft expired")
)

// Entry is a stored draft.  IdempotencyKey is minted once per draft and
// carried into the committed booking so that a resubmission cannot create
// a second one.
type Entry struct {
	ID             string        `json:"id"`
	OwnerID        uint64        `json:"owner_id"`
	IdempotencyKey string        `json:"idempotency_key"`
	Booking        model.Booking `json:"booking"`
	CreatedAt      time.Time     `json:"created_at"`
	ExpiresAt      time.Time     `json:"expires_at"`
}

// Store is the keyed draft cache.
type Store interface {
	Put(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	Evict(ctx context.Context, id string) error
}

// Clock returns the current time; tests substitute a fixed one.
type Clock func() time.Time

// stamp fills identifiers and timestamps on a new entry.
func stamp(e Entry, now time.Time, ttl time.Duration) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.IdempotencyKey == "" {
		e.IdempotencyKey = uuid.NewString()
	}
	e.CreatedAt = now.UTC()
	e.ExpiresAt = e.CreatedAt.Add(ttl)
	e.Booking.IdempotencyKey = e.IdempotencyKey
	return e
}

// Valid reports whether an entry created at createdAt is still inside the
// pending-payment window at now.
func Valid(createdAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(createdAt) < ttl
}
