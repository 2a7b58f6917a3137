package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/draft"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/payment"
	"github.com/iliyamo/hotel-reservation/internal/pricing"
	"github.com/iliyamo/hotel-reservation/internal/queue"
)

// memRepo commits bookings and transactions together or not at all.
type memRepo struct {
	mu       sync.Mutex
	bookings []model.Booking
	txs      []model.Transaction
	failTx   error
}

func (r *memRepo) CreateWithTransaction(_ context.Context, b *model.Booking, tx *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.IdempotencyKey == b.IdempotencyKey {
			return ErrDuplicate
		}
	}
	if r.failTx != nil {
		return r.failTx
	}
	b.ID = uint64(len(r.bookings) + 1)
	tx.BookingID = b.ID
	r.bookings = append(r.bookings, *b)
	r.txs = append(r.txs, *tx)
	return nil
}

func (r *memRepo) GetByIdempotencyKey(_ context.Context, key string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.IdempotencyKey == key {
			b := b
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) GetByCodeForUser(_ context.Context, userID uint64, code string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.BookingID == code && b.UserID == userID {
			b := b
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

type chanPublisher struct{ got chan queue.ReceiptEvent }

func (p *chanPublisher) PublishReceipt(_ context.Context, ev queue.ReceiptEvent) error {
	p.got <- ev
	return errors.New("broker down")
}

type fixture struct {
	svc    *Service
	repo   *memRepo
	drafts *draft.MemoryStore
	pub    *chanPublisher
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: &memRepo{},
		pub:  &chanPublisher{got: make(chan queue.ReceiptEvent, 4)},
		now:  time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.drafts = draft.NewMemoryStore(draft.DefaultTTL, clock)
	l := logrus.New()
	l.SetOutput(io.Discard)
	f.svc = NewService(pricing.NewBuilder(pricing.DefaultCatalog(), pricing.DefaultTaxRate), f.drafts, f.repo, f.pub, l)
	f.svc.now = clock
	seq := 0
	f.svc.newID = func() string {
		seq++
		return fmt.Sprintf("abc%03d00-0000-4000-8000-000000000000", seq)
	}
	return f
}

var guest = model.Identity{UserID: 7, Email: "guest@example.com", Role: model.RoleGuest}

func stay(guests int) pricing.Request {
	in := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	return pricing.Request{CheckIn: in, CheckOut: in.AddDate(0, 0, 2), RoomType: "standard", Guests: guests}
}

func validCard() payment.Input {
	return payment.Input{
		Method:     model.MethodCard,
		CardNumber: "4111 1111 1111 1111",
		CardExpiry: "09/99",
		CardCVV:    "123",
		CardName:   "A B",
	}
}

func TestPay_ScenarioAThenCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.SaveDraft(ctx, guest, stay(2))
	require.NoError(t, err)
	assert.True(t, e.Booking.TotalAmount.Equal(decimal.NewFromInt(5600)))
	assert.Empty(t, f.repo.bookings, "drafts never reach the bookings table")

	res, err := f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, Payment: validCard()})
	require.NoError(t, err)
	assert.False(t, res.Replayed)

	b := res.Booking
	assert.Equal(t, "HB-20261016-ABC001", b.BookingID)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, model.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, model.MethodCard, b.PaymentMethod)
	assert.Equal(t, "1111", b.PaymentDetails.CardLast4)
	assert.Equal(t, e.IdempotencyKey, b.IdempotencyKey)
	assert.Equal(t, "2026-10-16", b.BookingDate)

	require.Len(t, f.repo.bookings, 1)
	require.Len(t, f.repo.txs, 1)
	tx := f.repo.txs[0]
	assert.Equal(t, b.BookingID, tx.BookingCode)
	assert.True(t, tx.Amount.Equal(b.TotalAmount))
	assert.Equal(t, model.TransactionTypeBooking, tx.Type)
	assert.Equal(t, model.TransactionStatusCompleted, tx.Status)

	_, err = f.drafts.Get(ctx, e.ID)
	assert.ErrorIs(t, err, draft.ErrNotFound, "draft is evicted after commit")

	select {
	case ev := <-f.pub.got:
		assert.Equal(t, b.BookingID, ev.BookingID)
		assert.Equal(t, "5600.00", ev.TotalAmount)
	case <-time.After(time.Second):
		t.Fatal("receipt was not published")
	}
}

func TestPay_ValidationFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.SaveDraft(ctx, guest, stay(3))
	require.NoError(t, err)

	bad := validCard()
	bad.CardCVV = "12"
	_, err = f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, Payment: bad})

	var verr payment.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "card_cvv")
	assert.Empty(t, f.repo.bookings)
	assert.Empty(t, f.repo.txs)

	kept, err := f.drafts.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, kept.Booking.TotalAmount.Equal(decimal.NewFromInt(6720)))
}

func TestPay_StoreFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.SaveDraft(ctx, guest, stay(2))
	require.NoError(t, err)

	f.repo.failTx = errors.New("connection reset")
	_, err = f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, Payment: validCard()})
	require.Error(t, err)
	assert.Empty(t, f.repo.bookings)
	assert.Empty(t, f.repo.txs)

	_, err = f.drafts.Get(ctx, e.ID)
	require.NoError(t, err)

	f.repo.failTx = nil
	res, err := f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, Payment: validCard()})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Len(t, f.repo.bookings, 1)
}

func TestPay_ResubmissionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.SaveDraft(ctx, guest, stay(2))
	require.NoError(t, err)

	first, err := f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, Payment: validCard()})
	require.NoError(t, err)

	// the draft is gone; the client retries with the key it was given
	again, err := f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, IdempotencyKey: e.IdempotencyKey, Payment: validCard()})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Booking.BookingID, again.Booking.BookingID)
	assert.Len(t, f.repo.bookings, 1)
	assert.Len(t, f.repo.txs, 1)

	// without a key a missing draft is just missing
	_, err = f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, Payment: validCard()})
	assert.ErrorIs(t, err, draft.ErrNotFound)
}

func TestPay_ConcurrentSubmissionsCommitOnce(t *testing.T) {
	f := newFixture(t)
	f.svc.newID = func() string { return "abc00100-0000-4000-8000-000000000000" }
	ctx := context.Background()
	e, err := f.svc.SaveDraft(ctx, guest, stay(2))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*PayResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, IdempotencyKey: e.IdempotencyKey, Payment: validCard()})
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.repo.bookings, 1)
	assert.Len(t, f.repo.txs, 1)
	fresh := 0
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, f.repo.bookings[0].BookingID, r.Booking.BookingID)
		if !r.Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
}

func TestPay_StaleDraftReplaysCommittedBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.SaveDraft(ctx, guest, stay(2))
	require.NoError(t, err)

	// the draft was committed earlier but its eviction was lost
	_, err = f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, Payment: validCard()})
	require.NoError(t, err)
	_, err = f.drafts.Put(ctx, e)
	require.NoError(t, err)

	res, err := f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, Payment: validCard()})
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Len(t, f.repo.bookings, 1)
}

func TestDraft_ExpiryWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.SaveDraft(ctx, guest, stay(2))
	require.NoError(t, err)

	f.now = f.now.Add(29 * time.Minute)
	got, err := f.svc.GetDraft(ctx, guest, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	f.now = f.now.Add(2 * time.Minute)
	_, err = f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, Payment: validCard()})
	assert.ErrorIs(t, err, draft.ErrExpired)
	assert.Empty(t, f.repo.bookings)
}

func TestDraft_OwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.SaveDraft(ctx, guest, stay(2))
	require.NoError(t, err)

	other := model.Identity{UserID: 8, Email: "guest@example.com", Role: model.RoleGuest}
	_, err = f.svc.GetDraft(ctx, other, e.ID)
	assert.ErrorIs(t, err, draft.ErrNotFound)
	assert.ErrorIs(t, f.svc.DiscardDraft(ctx, other, e.ID), draft.ErrNotFound)
	_, err = f.svc.Pay(ctx, other, PayRequest{DraftID: e.ID, Payment: validCard()})
	assert.ErrorIs(t, err, draft.ErrNotFound)

	require.NoError(t, f.svc.DiscardDraft(ctx, guest, e.ID))
	_, err = f.svc.GetDraft(ctx, guest, e.ID)
	assert.ErrorIs(t, err, draft.ErrNotFound)
}

func TestMyBookings_ByUserIDNotEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.SaveDraft(ctx, guest, stay(2))
	require.NoError(t, err)
	res, err := f.svc.Pay(ctx, guest, PayRequest{DraftID: e.ID, Payment: validCard()})
	require.NoError(t, err)

	renamed := guest
	renamed.Email = "new-address@example.com"
	page, err := f.svc.MyBookings(ctx, renamed, ViewQuery{}, 5)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	sameEmail := model.Identity{UserID: 99, Email: guest.Email}
	page, err = f.svc.MyBookings(ctx, sameEmail, ViewQuery{}, 5)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	got, err := f.svc.Get(ctx, guest, res.Booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, res.Booking.BookingID, got.BookingID)
	_, err = f.svc.Get(ctx, sameEmail, res.Booking.BookingID)
	assert.ErrorIs(t, err, ErrNotFound)
}
