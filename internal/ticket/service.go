package ticket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/feed"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Query is the combined search form of the admin console.  Empty fields
// are ignored.
type Query struct {
	Category string
	Priority model.TicketPriority
	Status   model.TicketStatus
	Text     string
}

type Repository interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	// UpdateStatus must only succeed while the stored status equals from.
	UpdateStatus(ctx context.Context, id uint64, from, to model.TicketStatus, completedAt *time.Time) error
	UpdateDetails(ctx context.Context, t *model.Ticket) error
	ListByStatus(ctx context.Context, statuses ...model.TicketStatus) ([]model.Ticket, error)
	Search(ctx context.Context, q Query) ([]model.Ticket, error)
}

// Notifier posts an entry to the back-office notifications feed.
type Notifier interface {
	Notify(ctx context.Context, title, message, kind string) error
}

// View selects one of the console's live lists.
type View string

const (
	ViewActive    View = "active"
	ViewCompleted View = "completed"
	ViewArchived  View = "archived"
)

// NewTicket is the create form.
type NewTicket struct {
	TaskTitle   string
	Description string
	Category    string
	Priority    model.TicketPriority
	RoomNumber  string
	AssignedTo  string
	DueDate     *time.Time
}

type Service struct {
	repo     Repository
	broker   feed.Broker
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(repo Repository, broker feed.Broker, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, broker: broker, notifier: notifier, log: log, now: time.Now}
}

func (s *Service) Create(ctx context.Context, who model.Identity, in NewTicket) (*model.Ticket, error) {
	if strings.TrimSpace(in.TaskTitle) == "" || strings.TrimSpace(in.Category) == "" || strings.TrimSpace(in.RoomNumber) == "" {
		return nil, fmt.Errorf("%w: task title, category and room number are required", ErrInvalidTicket)
	}
	prio := in.Priority
	if prio == "" {
		prio = model.PriorityMedium
	}
	prio, err := ParsePriority(string(prio))
	if err != nil {
		return nil, err
	}
	t := &model.Ticket{
		TaskTitle:   strings.TrimSpace(in.TaskTitle),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Priority:    prio,
		RoomNumber:  strings.TrimSpace(in.RoomNumber),
		Status:      model.TicketOpen,
		AssignedTo:  strings.TrimSpace(in.AssignedTo),
		CreatedBy:   who.UserID,
		CreatedAt:   s.now().UTC(),
		DueDate:     in.DueDate,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	t.TicketNumber = Number(t.ID)

	s.log.WithFields(logrus.Fields{"ticket_id": t.ID, "user_id": who.UserID}).Info("ticket created")
	s.publish(ctx, t)
	if s.notifier != nil {
		msg := fmt.Sprintf("%s in room %s (%s priority)", t.TaskTitle, t.RoomNumber, t.Priority)
		if err := s.notifier.Notify(ctx, "New ticket "+t.TicketNumber, msg, "ticket"); err != nil {
			s.log.WithError(err).WithField("ticket_id", t.ID).Warn("ticket notification failed")
		}
	}
	return t, nil
}

// Transition applies a status action and persists it.
func (s *Service) Transition(ctx context.Context, id uint64, act Action) (*model.Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := t.Status
	if err := Apply(t, act, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, from, t.Status, t.CompletedAt); err != nil {
		return nil, fmt.Errorf("update ticket status: %w", err)
	}
	s.log.WithFields(logrus.Fields{"ticket_id": id, "from": from, "to": t.Status}).Info("ticket status changed")
	s.publish(ctx, t)
	return t, nil
}

// Report amends an active ticket ("Report Issue").  A ticket completed or
// archived after it was read yields ErrConflict.
func (s *Service) Report(ctx context.Context, id uint64, a Amendment) (*model.Ticket, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Amend(t, a, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDetails(ctx, t); err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	s.publish(ctx, t)
	return t, nil
}

func (s *Service) List(ctx context.Context, v View) ([]model.Ticket, error) {
	switch v {
	case ViewActive, "":
		return s.repo.ListByStatus(ctx, model.TicketOpen, model.TicketInProgress)
	case ViewCompleted:
		return s.repo.ListByStatus(ctx, model.TicketCompleted)
	case ViewArchived:
		return s.repo.ListByStatus(ctx, model.TicketArchived)
	}
	return nil, fmt.Errorf("%w: unknown view %q", ErrInvalidTicket, v)
}

// Search runs a fresh one-shot query; it does not consult the live lists.
func (s *Service) Search(ctx context.Context, q Query) ([]model.Ticket, error) {
	if q.Priority != "" {
		if _, err := ParsePriority(string(q.Priority)); err != nil {
			return nil, err
		}
	}
	if q.Status != "" {
		if _, err := ParseStatus(string(q.Status)); err != nil {
			return nil, err
		}
	}
	q.Text = strings.TrimSpace(q.Text)
	return s.repo.Search(ctx, q)
}

// Subscribe streams every ticket change until ctx ends.
func (s *Service) Subscribe(ctx context.Context) (<-chan []byte, error) {
	return s.broker.Subscribe(ctx, feed.TopicTickets)
}

func (s *Service) publish(ctx context.Context, t *model.Ticket) {
	if err := s.broker.Publish(ctx, feed.TopicTickets, t); err != nil {
		s.log.WithError(err).WithField("ticket_id", t.ID).Warn("ticket feed publish failed")
	}
}
