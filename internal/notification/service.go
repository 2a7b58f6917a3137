// Package notification serves the back-office notifications feed.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/feed"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

var ErrNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListRecent(ctx context.Context, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id uint64) error
}

type Service struct {
	repo   Repository
	broker feed.Broker
	limit  int
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewService(repo Repository, broker feed.Broker, limit int, log logrus.FieldLogger) *Service {
	if limit <= 0 {
		limit = 50
	}
	return &Service{repo: repo, broker: broker, limit: limit, log: log, now: time.Now}
}

// Notify stores a new unread entry and pushes it to live subscribers.
func (s *Service) Notify(ctx context.Context, title, message, kind string) error {
	n := &model.Notification{
		Title:     title,
		Message:   message,
		Type:      kind,
		Status:    model.NotificationUnread,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	s.publish(ctx, n)
	return nil
}

// List returns the newest entries, capped at the configured fetch size.
func (s *Service) List(ctx context.Context) ([]model.Notification, error) {
	return s.repo.ListRecent(ctx, s.limit)
}

func (s *Service) MarkRead(ctx context.Context, id uint64) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, &model.Notification{ID: id, Status: model.NotificationRead})
	return nil
}

// ClearAll marks every currently loaded unread entry as read, one update
// per entry.  It is not atomic: on error the entries already updated stay
// read and the count of those is returned with the error.
func (s *Service) ClearAll(ctx context.Context) (int, error) {
	items, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, n := range items {
		if n.Status == model.NotificationRead {
			continue
		}
		if err := s.MarkRead(ctx, n.ID); err != nil {
			s.log.WithError(err).WithField("notification_id", n.ID).Warn("clear notifications stopped")
			return cleared, fmt.Errorf("mark %d read: %w", n.ID, err)
		}
		cleared++
	}
	return cleared, nil
}

func (s *Service) Subscribe(ctx context.Context) (<-chan []byte, error) {
	return s.broker.Subscribe(ctx, feed.TopicNotifications)
}

func (s *Service) publish(ctx context.Context, n *model.Notification) {
	if err := s.broker.Publish(ctx, feed.TopicNotifications, n); err != nil {
		s.log.WithError(err).WithField("notification_id", n.ID).Warn("notification feed publish failed")
	}
}
