package events

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketReopened      EventType = "ticket_reopened"
	EventSkillsEvaluated     EventType = "skills_evaluated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role         domain.Role `json:"role"`
	UserID       string      `json:"user_id"`
	TechnicianID *string     `json:"technician_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	RequesterID string                `json:"requester_id"`
	Priority    domain.TicketPriority `json:"priority"`
	Impact      domain.TicketImpact   `json:"impact"`
	Urgency     domain.TicketUrgency  `json:"urgency"`
	Subject     string                `json:"subject"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketAssignedPayload payload. Automatic is true for AI-driven assignment.
type TicketAssignedPayload struct {
	TechnicianID  *string `json:"technician_id,omitempty"`
	Automatic     bool    `json:"automatic"`
	Justification *string `json:"justification,omitempty"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	FromStatus    domain.TicketStatus `json:"from_status"`
	ReopenedCount int                 `json:"reopened_count"`
}

// SkillsEvaluatedPayload payload.
type SkillsEvaluatedPayload struct {
	TechnicianID string `json:"technician_id"`
	SkillCount   int    `json:"skill_count"`
}
