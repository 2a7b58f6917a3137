// Package ticket implements the maintenance and housekeeping workflow:
// Open -> In Progress -> Completed -> Archived.
package ticket

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

type Action string

const (
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionArchive  Action = "archive"
)

var (
	ErrInvalidTransition = errors.New("invalid ticket transition")
	ErrNotAmendable      = errors.New("ticket can no longer be amended")
	ErrInvalidTicket     = errors.New("invalid ticket")
	ErrNotFound          = errors.New("ticket not found")
	// ErrConflict means the ticket changed status between read and write.
	ErrConflict = errors.New("ticket was modified concurrently")
)

var transitions = map[model.TicketStatus]map[Action]model.TicketStatus{
	model.TicketOpen: {
		ActionStart:    model.TicketInProgress,
		ActionComplete: model.TicketCompleted,
	},
	model.TicketInProgress: {
		ActionComplete: model.TicketCompleted,
	},
	model.TicketCompleted: {
		ActionArchive: model.TicketArchived,
	},
	model.TicketArchived: {},
}

// Next returns the status reached by applying act to from.
func Next(from model.TicketStatus, act Action) (model.TicketStatus, error) {
	to, ok := transitions[from][act]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a ticket that is %s", ErrInvalidTransition, act, from)
	}
	return to, nil
}

// Apply moves t through act, stamping CompletedAt on completion.
func Apply(t *model.Ticket, act Action, now time.Time) error {
	to, err := Next(t.Status, act)
	if err != nil {
		return err
	}
	t.Status = to
	if to == model.TicketCompleted {
		at := now.UTC()
		t.CompletedAt = &at
	}
	return nil
}

// IsActive reports whether the ticket belongs in the active list.
func IsActive(s model.TicketStatus) bool {
	return s == model.TicketOpen || s == model.TicketInProgress
}

// Amendment is a "Report Issue" edit: a note appended to the description
// and optional priority / due date changes.
type Amendment struct {
	Note     string
	Priority model.TicketPriority
	DueDate  *time.Time
}

// Amend edits an active ticket in place without changing its status.
func Amend(t *model.Ticket, a Amendment, now time.Time) error {
	if !IsActive(t.Status) {
		return ErrNotAmendable
	}
	note := strings.TrimSpace(a.Note)
	if note == "" && a.Priority == "" && a.DueDate == nil {
		return fmt.Errorf("%w: nothing to amend", ErrInvalidTicket)
	}
	priority := t.Priority
	if a.Priority != "" {
		p, err := ParsePriority(string(a.Priority))
		if err != nil {
			return err
		}
		priority = p
	}
	if note != "" {
		line := fmt.Sprintf("[%s] %s", now.UTC().Format("2006-01-02 15:04"), note)
		if t.Description == "" {
			t.Description = line
		} else {
			t.Description += "\n" + line
		}
	}
	t.Priority = priority
	if a.DueDate != nil {
		d := a.DueDate.UTC()
		t.DueDate = &d
	}
	return nil
}

func ParsePriority(s string) (model.TicketPriority, error) {
	switch p := model.TicketPriority(s); p {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidTicket, s)
}

func ParseStatus(s string) (model.TicketStatus, error) {
	switch st := model.TicketStatus(s); st {
	case model.TicketOpen, model.TicketInProgress, model.TicketCompleted, model.TicketArchived:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTicket, s)
}

// Number formats the display number of a ticket row.
func Number(id uint64) string { return fmt.Sprintf("TK-%06d", id) }
