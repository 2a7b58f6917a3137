package model

import "time"

const (
	NotificationUnread = "unread"
	NotificationRead   = "read"
)

// Notification is one entry of the back-office feed.
type Notification struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"` // booking, ticket, system
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
