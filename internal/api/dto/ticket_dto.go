package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// CreateTicketRequest is the POST /tickets payload.
type CreateTicketRequest struct {
	Subject          string                `json:"subject"`
	Description      string                `json:"description"`
	Priority         domain.TicketPriority `json:"priority"`
	Impact           domain.TicketImpact   `json:"impact"`
	Urgency          domain.TicketUrgency  `json:"urgency"`
	RequiredSkillIDs []string              `json:"required_skill_ids"`
	Tags             []string              `json:"tags"`
	ResolutionDue    *time.Time            `json:"resolution_due"`
}

// UpdateTicketRequest carries optional field changes.
type UpdateTicketRequest struct {
	Subject          *string                `json:"subject"`
	Description      *string                `json:"description"`
	Priority         *domain.TicketPriority `json:"priority"`
	Impact           *domain.TicketImpact   `json:"impact"`
	Urgency          *domain.TicketUrgency  `json:"urgency"`
	RequiredSkillIDs *[]string              `json:"required_skill_ids"`
	Tags             *[]string              `json:"tags"`
	SLAViolated      *bool                  `json:"sla_violated"`
	ResolutionDue    *time.Time             `json:"resolution_due"`
	EscalationCount  *int                   `json:"escalation_count"`
}

// ChangeStatusRequest is the transition payload.
type ChangeStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// CloseTicketRequest closes a resolved ticket with optional feedback.
type CloseTicketRequest struct {
	Feedback           *string `json:"feedback"`
	SatisfactionRating *int    `json:"satisfaction_rating"`
}

// ReopenTicketRequest reopens a resolved or closed ticket.
type ReopenTicketRequest struct {
	Comment string `json:"comment"`
}

// CancelTicketRequest cancels a ticket.
type CancelTicketRequest struct {
	Reason string `json:"reason"`
}

// AssignTechnicianRequest is the manual assignment payload.
type AssignTechnicianRequest struct {
	TechnicianID  string `json:"technician_id"`
	Justification string `json:"justification"`
}

// AddTaskRequest records a sub-task.
type AddTaskRequest struct {
	Title string `json:"title"`
}

// AddWorkLogRequest records time spent.
type AddWorkLogRequest struct {
	Summary string `json:"summary"`
	Minutes int    `json:"minutes"`
}

// TicketSummary is the listing projection.
type TicketSummary struct {
	ID                   string                `json:"id"`
	ExternalKey          string                `json:"external_key"`
	Subject              string                `json:"subject"`
	Status               domain.TicketStatus   `json:"status"`
	Priority             domain.TicketPriority `json:"priority"`
	Impact               domain.TicketImpact   `json:"impact"`
	Urgency              domain.TicketUrgency  `json:"urgency"`
	AssignedTechnicianID *string               `json:"assigned_technician_id,omitempty"`
	Tags                 []string              `json:"tags,omitempty"`
	SLAViolated          bool                  `json:"sla_violated"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// TicketDetailResponse is the full ticket projection.
type TicketDetailResponse struct {
	ID                   string                `json:"id"`
	ExternalKey          string                `json:"external_key"`
	RequesterID          string                `json:"requester_id"`
	AssignedTechnicianID *string               `json:"assigned_technician_id,omitempty"`
	Subject              string                `json:"subject"`
	Description          string                `json:"description"`
	Status               domain.TicketStatus   `json:"status"`
	Priority             domain.TicketPriority `json:"priority"`
	Impact               domain.TicketImpact   `json:"impact"`
	Urgency              domain.TicketUrgency  `json:"urgency"`
	RequiredSkillIDs     []string              `json:"required_skill_ids,omitempty"`
	Tags                 []string              `json:"tags,omitempty"`
	SLAViolated          bool                  `json:"sla_violated"`
	ResolutionDue        *time.Time            `json:"resolution_due,omitempty"`
	EscalationCount      int                   `json:"escalation_count"`
	ReopenedCount        int                   `json:"reopened_count"`
	SatisfactionRating   *int                  `json:"satisfaction_rating,omitempty"`
	Feedback             *string               `json:"feedback,omitempty"`
	Justification        *string               `json:"justification,omitempty"`
	ResolvedAt           *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt             *time.Time            `json:"closed_at,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
	AuditTrail           []AuditEntryResponse  `json:"audit_trail,omitempty"`
	Tasks                []TaskResponse        `json:"tasks,omitempty"`
	WorkLogs             []WorkLogResponse     `json:"work_logs,omitempty"`
}

// AuditEntryResponse is one ledger row.
type AuditEntryResponse struct {
	ID          string             `json:"id"`
	Action      domain.AuditAction `json:"action"`
	OldValue    *string            `json:"old_value,omitempty"`
	NewValue    *string            `json:"new_value,omitempty"`
	Comment     string             `json:"comment,omitempty"`
	PerformedBy string             `json:"performed_by"`
	Timestamp   time.Time          `json:"timestamp"`
}

// TaskResponse is a technician sub-task.
type TaskResponse struct {
	ID           string            `json:"id"`
	TechnicianID string            `json:"technician_id"`
	Title        string            `json:"title"`
	Status       domain.TaskStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// WorkLogResponse is one time entry.
type WorkLogResponse struct {
	ID           string    `json:"id"`
	TechnicianID string    `json:"technician_id"`
	Summary      string    `json:"summary"`
	Minutes      int       `json:"minutes"`
	CreatedAt    time.Time `json:"created_at"`
}

// CandidateResponse is one ranked assignment candidate.
type CandidateResponse struct {
	TechnicianID string `json:"technician_id"`
	Name         string `json:"name"`
	Workload     int    `json:"workload"`
	Proficiency  int    `json:"proficiency"`
}
