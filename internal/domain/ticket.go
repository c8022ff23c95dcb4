package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusOnHold     TicketStatus = "on_hold"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// IsValidStatus reports whether s is a member of the status set.
func IsValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusNew, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusOnHold, TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// IsTerminalStatus reports whether no further transitions leave s.
func IsTerminalStatus(s TicketStatus) bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// IsActiveStatus reports whether a ticket in status s counts toward the
// assigned technician's workload.
func IsActiveStatus(s TicketStatus) bool {
	return s == TicketStatusAssigned || s == TicketStatusInProgress || s == TicketStatusOnHold
}

// TicketPriority enumerates requester-facing priority.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityNormal   TicketPriority = "normal"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// IsValidPriority reports whether p is a known priority.
func IsValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketImpact enumerates business impact.
type TicketImpact string

const (
	TicketImpactLow      TicketImpact = "low"
	TicketImpactMedium   TicketImpact = "medium"
	TicketImpactHigh     TicketImpact = "high"
	TicketImpactCritical TicketImpact = "critical"
)

// IsValidImpact reports whether i is a known impact.
func IsValidImpact(i TicketImpact) bool {
	switch i {
	case TicketImpactLow, TicketImpactMedium, TicketImpactHigh, TicketImpactCritical:
		return true
	}
	return false
}

// TicketUrgency enumerates time sensitivity.
type TicketUrgency string

const (
	TicketUrgencyLow      TicketUrgency = "low"
	TicketUrgencyNormal   TicketUrgency = "normal"
	TicketUrgencyHigh     TicketUrgency = "high"
	TicketUrgencyCritical TicketUrgency = "critical"
)

// IsValidUrgency reports whether u is a known urgency.
func IsValidUrgency(u TicketUrgency) bool {
	switch u {
	case TicketUrgencyLow, TicketUrgencyNormal, TicketUrgencyHigh, TicketUrgencyCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. AuditTrail is append-only and
// owned by the ticket; Tasks and WorkLogs belong to the technician-facing
// workflow.
type Ticket struct {
	ID                   string
	ExternalKey          string
	RequesterID          string
	AssignedTechnicianID *string
	Subject              string
	Description          string
	Status               TicketStatus
	Priority             TicketPriority
	Impact               TicketImpact
	Urgency              TicketUrgency
	RequiredSkillIDs     []string
	Tags                 []string
	SLAViolated          bool
	ResolutionDue        *time.Time
	EscalationCount      int
	ReopenedCount        int
	SatisfactionRating   *int
	Feedback             *string
	Justification        *string
	ResolvedAt           *time.Time
	ClosedAt             *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
	AuditTrail           []AuditEntry
	Tasks                []Task
	WorkLogs             []WorkLog
}

// HasRequiredSkill reports whether skillID is in the ticket's required set.
func (t *Ticket) HasRequiredSkill(skillID string) bool {
	for _, id := range t.RequiredSkillIDs {
		if id == skillID {
			return true
		}
	}
	return false
}
