package model

import "time"

type TicketStatus string

const (
	TicketOpen       TicketStatus = "Open"
	TicketInProgress TicketStatus = "In Progress"
	TicketCompleted  TicketStatus = "Completed"
	TicketArchived   TicketStatus = "Archived"
)

type TicketPriority string

const (
	PriorityHigh   TicketPriority = "High"
	PriorityMedium TicketPriority = "Medium"
	PriorityLow    TicketPriority = "Low"
)

// Ticket is a maintenance or housekeeping work item.  CompletedAt is set
// exactly when the ticket moves to TicketCompleted.
type Ticket struct {
	ID           uint64         `json:"id"`
	TicketNumber string         `json:"ticket_number"`
	TaskTitle    string         `json:"task_title"`
	Description  string         `json:"description"`
	Category     string         `json:"category"`
	Priority     TicketPriority `json:"priority"`
	RoomNumber   string         `json:"room_number"`
	Status       TicketStatus   `json:"status"`
	AssignedTo   string         `json:"assigned_to"`
	CreatedBy    uint64         `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	DueDate      *time.Time     `json:"due_date,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}
