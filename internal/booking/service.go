// Package booking turns priced drafts into paid bookings and serves the
// guest's booking history.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/draft"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/payment"
	"github.com/iliyamo/hotel-reservation/internal/pricing"
	"github.com/iliyamo/hotel-reservation/internal/queue"
)

var (
	ErrNotFound  = errors.New("booking not found")
	ErrDuplicate = errors.New("booking already committed for this idempotency key")
)

// Repository persists committed bookings.  CreateWithTransaction must write
// both rows atomically and return ErrDuplicate when the booking's
// idempotency key is already taken.
type Repository interface {
	CreateWithTransaction(ctx context.Context, b *model.Booking, tx *model.Transaction) error
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error)
	GetByCodeForUser(ctx context.Context, userID uint64, code string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

type ReceiptPublisher interface {
	PublishReceipt(ctx context.Context, ev queue.ReceiptEvent) error
}

// PayRequest is one payment attempt.  IdempotencyKey is optional; when the
// draft is gone it lets a client that lost the first response fetch the
// booking it already paid for.
type PayRequest struct {
	DraftID        string
	IdempotencyKey string
	Payment        payment.Input
}

type PayResult struct {
	Booking     model.Booking      `json:"booking"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	Replayed    bool               `json:"replayed"`
}

type Service struct {
	pricer    *pricing.Builder
	drafts    draft.Store
	repo      Repository
	publisher ReceiptPublisher
	log       logrus.FieldLogger
	now       func() time.Time
	newID     func() string
}

func NewService(pricer *pricing.Builder, drafts draft.Store, repo Repository, publisher ReceiptPublisher, log logrus.FieldLogger) *Service {
	return &Service{
		pricer:    pricer,
		drafts:    drafts,
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Quote prices a request without storing anything.
func (s *Service) Quote(who model.Identity, req pricing.Request) (model.Booking, error) {
	return s.pricer.Quote(req, who)
}

// SaveDraft re-prices the request and parks it in the draft store for the
// pending-payment window.
func (s *Service) SaveDraft(ctx context.Context, who model.Identity, req pricing.Request) (draft.Entry, error) {
	b, err := s.pricer.Quote(req, who)
	if err != nil {
		return draft.Entry{}, err
	}
	e, err := s.drafts.Put(ctx, draft.Entry{OwnerID: who.UserID, Booking: b})
	if err != nil {
		return draft.Entry{}, fmt.Errorf("save draft: %w", err)
	}
	s.log.WithFields(logrus.Fields{"draft_id": e.ID, "user_id": who.UserID}).Info("draft saved")
	return e, nil
}

// GetDraft returns a still-valid draft owned by who.  Drafts of other users
// are reported as draft.ErrNotFound.
func (s *Service) GetDraft(ctx context.Context, who model.Identity, id string) (draft.Entry, error) {
	e, err := s.drafts.Get(ctx, id)
	if err != nil {
		return draft.Entry{}, err
	}
	if e.OwnerID != who.UserID {
		return draft.Entry{}, draft.ErrNotFound
	}
	return e, nil
}

func (s *Service) DiscardDraft(ctx context.Context, who model.Identity, id string) error {
	if _, err := s.GetDraft(ctx, who, id); err != nil {
		return err
	}
	return s.drafts.Evict(ctx, id)
}

// Pay validates the payment, then commits the booking and its transaction
// together.  A draft whose idempotency key has already been committed
// yields the existing booking with Replayed set.  On any failure the draft
// is left in place so the guest can retry.
func (s *Service) Pay(ctx context.Context, who model.Identity, req PayRequest) (*PayResult, error) {
	l := s.log.WithFields(logrus.Fields{"draft_id": req.DraftID, "user_id": who.UserID})

	e, err := s.GetDraft(ctx, who, req.DraftID)
	if err != nil {
		if req.IdempotencyKey != "" && (errors.Is(err, draft.ErrNotFound) || errors.Is(err, draft.ErrExpired)) {
			if res, rerr := s.replay(ctx, who, req.IdempotencyKey); rerr == nil {
				l.Info("payment replayed after draft eviction")
				return res, nil
			}
		}
		return nil, err
	}

	if err := payment.Validate(req.Payment); err != nil {
		return nil, err
	}

	if res, err := s.replay(ctx, who, e.IdempotencyKey); err == nil {
		s.evict(ctx, l, e.ID)
		return res, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}

	now := s.now().UTC()
	b := e.Booking
	b.IdempotencyKey = e.IdempotencyKey
	b.UserID = who.UserID
	b.BookingID = s.bookingCode(now)
	b.Status = model.BookingConfirmed
	b.PaymentStatus = model.PaymentPaid
	b.PaymentMethod = req.Payment.Method
	details := payment.Redact(req.Payment, now)
	b.PaymentDetails = &details
	b.BookingDate = now.Format(time.DateOnly)
	b.CreatedAt = now
	b.UpdatedAt = now

	tx := model.Transaction{
		TransactionID: s.newID(),
		BookingCode:   b.BookingID,
		UserID:        b.UserID,
		Amount:        b.TotalAmount,
		Type:          model.TransactionTypeBooking,
		Status:        model.TransactionStatusCompleted,
		PaymentMethod: b.PaymentMethod,
		CreatedAt:     now,
		CompletedAt:   now,
	}

	if err := s.repo.CreateWithTransaction(ctx, &b, &tx); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// a concurrent submission of the same draft won the race
			if res, rerr := s.replay(ctx, who, e.IdempotencyKey); rerr == nil {
				s.evict(ctx, l, e.ID)
				return res, nil
			}
		}
		l.WithError(err).Error("booking commit failed")
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	l = l.WithField("booking_id", b.BookingID)
	l.Info("booking confirmed")
	s.evict(ctx, l, e.ID)

	if s.publisher != nil {
		ev := queue.NewReceipt(b, tx)
		go func(ctx context.Context) {
			if err := s.publisher.PublishReceipt(ctx, ev); err != nil {
				l.WithError(err).Warn("receipt dispatch failed")
			}
		}(context.WithoutCancel(ctx))
	}

	return &PayResult{Booking: b, Transaction: &tx}, nil
}

// Get returns one of the caller's bookings by its code.
func (s *Service) Get(ctx context.Context, who model.Identity, code string) (*model.Booking, error) {
	return s.repo.GetByCodeForUser(ctx, who.UserID, code)
}

// MyBookings loads every booking of who and applies the view query.
func (s *Service) MyBookings(ctx context.Context, who model.Identity, q ViewQuery, pageSize int) (Page, error) {
	all, err := s.repo.ListByUser(ctx, who.UserID)
	if err != nil {
		return Page{}, fmt.Errorf("list bookings: %w", err)
	}
	return View(all, q, pageSize, s.now()), nil
}

func (s *Service) replay(ctx context.Context, who model.Identity, key string) (*PayResult, error) {
	existing, err := s.repo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing.UserID != who.UserID {
		return nil, ErrNotFound
	}
	return &PayResult{Booking: *existing, Replayed: true}, nil
}

func (s *Service) evict(ctx context.Context, l logrus.FieldLogger, id string) {
	if err := s.drafts.Evict(ctx, id); err != nil {
		l.WithError(err).Warn("draft eviction failed")
	}
}

// bookingCode renders HB-YYYYMMDD-XXXXXX.
func (s *Service) bookingCode(now time.Time) string {
	raw := strings.ReplaceAll(s.newID(), "-", "")
	return "HB-" + now.Format("20060102") + "-" + strings.ToUpper(raw[:6])
}
