package domain

import "time"

// AuditAction identifies what a ledger entry records.
type AuditAction string

const (
	AuditTicketCreated       AuditAction = "ticket_created"
	AuditTicketUpdated       AuditAction = "ticket_updated"
	AuditStatusChanged       AuditAction = "status_changed"
	AuditAssignedTechnician  AuditAction = "assigned_technician"
	AuditRemovedTechnician   AuditAction = "removed_technician"
	AuditAIAssigned          AuditAction = "ai_assigned"
	AuditAINoAssignment      AuditAction = "ai_no_assignment"
	AuditAIAssignmentFailed  AuditAction = "ai_assignment_failed"
	AuditTicketReactivated   AuditAction = "reactivated"
	AuditTicketClosed        AuditAction = "closed"
	AuditTicketCancelled     AuditAction = "cancelled"
	AuditSkillsEvaluated     AuditAction = "skills_evaluated"
	AuditTaskAdded           AuditAction = "added_task"
	AuditWorkLogAdded        AuditAction = "added_work_log"
)

// AuditEntry is one immutable row in a ticket's append-only ledger. Entries
// are never edited or deleted; ordering is by insertion.
type AuditEntry struct {
	ID          string
	TicketID    string
	Action      AuditAction
	OldValue    *string
	NewValue    *string
	Comment     string
	PerformedBy string
	Timestamp   time.Time
}
