package domain

import "time"

// TaskStatus enumerates states for technician sub-tasks.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusDone      TaskStatus = "done"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Task is a technician-owned work item attached to a ticket.
type Task struct {
	ID           string
	TicketID     string
	TechnicianID string
	Title        string
	Description  *string
	Status       TaskStatus
	DueDate      *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// WorkLog records time a technician spent on a ticket.
type WorkLog struct {
	ID           string
	TicketID     string
	TechnicianID string
	Summary      string
	Minutes      int
	CreatedAt    time.Time
}
