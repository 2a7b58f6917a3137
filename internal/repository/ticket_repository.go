package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/ticket"
)

type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, task_title, description, category, priority, room_number, status,
	assigned_to, created_by, created_at, due_date, completed_at`

// searchLimit caps one-shot console searches.
const searchLimit = 200

func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (task_title, description, category, priority, room_number, status, assigned_to, created_by, created_at, due_date)
		VALUES (?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q,
		t.TaskTitle, t.Description, t.Category, string(t.Priority), t.RoomNumber, string(t.Status),
		t.AssignedTo, t.CreatedBy, t.CreatedAt, nullTime(t.DueDate))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.TicketNumber = ticket.Number(t.ID)
	return nil
}

func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=? LIMIT 1`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ticket.ErrNotFound
	}
	return t, err
}

// UpdateStatus is a compare-and-set on the status column.  A concurrent
// change in between the caller's read and this write yields
// ticket.ErrConflict.
func (r *TicketRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.TicketStatus, completedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET status=?, completed_at=? WHERE id=? AND status=?`,
		string(to), nullTime(completedAt), id, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ticket.ErrConflict
	}
	return nil
}

// UpdateDetails writes the amendable fields only, and only while the
// ticket is still Open or In Progress.  A ticket completed or archived
// since the caller's read yields ticket.ErrConflict.
func (r *TicketRepo) UpdateDetails(ctx context.Context, t *model.Ticket) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET description=?, priority=?, due_date=? WHERE id=? AND status IN (?,?)`,
		t.Description, string(t.Priority), nullTime(t.DueDate), t.ID,
		string(model.TicketOpen), string(model.TicketInProgress))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ticket.ErrConflict
	}
	return nil
}

func (r *TicketRepo) ListByStatus(ctx context.Context, statuses ...model.TicketStatus) ([]model.Ticket, error) {
	if len(statuses) == 0 {
		return []model.Ticket{}, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, 0, len(statuses))
	for _, s := range statuses {
		args = append(args, string(s))
	}
	return r.list(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE status IN (`+marks+`) ORDER BY created_at DESC, id DESC`, args...)
}

// Search builds a one-shot filtered query; empty filters are ignored.
func (r *TicketRepo) Search(ctx context.Context, q ticket.Query) ([]model.Ticket, error) {
	where := []string{}
	args := []any{}

	if q.Category != "" {
		where = append(where, "LOWER(category) = ?")
		args = append(args, strings.ToLower(q.Category))
	}
	if q.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(q.Priority))
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.Text != "" {
		like := "%" + strings.ToLower(q.Text) + "%"
		where = append(where, "(LOWER(task_title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(room_number) LIKE ? OR LOWER(assigned_to) LIKE ?)")
		args = append(args, like, like, like, like)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	args = append(args, searchLimit)
	return r.list(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE `+cond+` ORDER BY created_at DESC, id DESC LIMIT ?`, args...)
}

func (r *TicketRepo) list(ctx context.Context, query string, args ...any) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTicket(s scanner) (*model.Ticket, error) {
	var (
		t                model.Ticket
		priority, status string
		due, completed   sql.NullTime
	)
	err := s.Scan(&t.ID, &t.TaskTitle, &t.Description, &t.Category, &priority, &t.RoomNumber, &status,
		&t.AssignedTo, &t.CreatedBy, &t.CreatedAt, &due, &completed)
	if err != nil {
		return nil, err
	}
	t.Priority = model.TicketPriority(priority)
	t.Status = model.TicketStatus(status)
	t.TicketNumber = ticket.Number(t.ID)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if completed.Valid {
		c := completed.Time
		t.CompletedAt = &c
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
