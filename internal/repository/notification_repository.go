package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/notification"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (title, message, type, status, created_at) VALUES (?,?,?,?,?)`,
		n.Title, n.Message, n.Type, n.Status, n.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListRecent returns at most limit notifications, newest first.
func (r *NotificationRepo) ListRecent(ctx context.Context, limit int) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, message, type, status, created_at FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead is a no-op for an entry that is already read.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET status=? WHERE id=? AND status<>?`,
		model.NotificationRead, id, model.NotificationRead)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE id=?`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return notification.ErrNotFound
	}
	return nil
}
