package auth

import (
	"fmt"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// Caller is the explicit identity passed into every mutating operation.
// Services never reach for ambient request state; handlers build a Caller
// once and thread it through.
type Caller struct {
	Role         domain.Role
	UserID       string
	TechnicianID *string
}

// Actor renders the audit-trail attribution string, e.g. "technician:42".
func (c Caller) Actor() string {
	switch c.Role {
	case domain.RoleTechnician:
		if c.TechnicianID != nil {
			return fmt.Sprintf("technician:%s", *c.TechnicianID)
		}
		return fmt.Sprintf("technician:%s", c.UserID)
	case domain.RoleAdmin:
		return fmt.Sprintf("admin:%s", c.UserID)
	default:
		return fmt.Sprintf("user:%s", c.UserID)
	}
}

// IsAssignee reports whether the caller is the ticket's assigned technician.
func (c Caller) IsAssignee(ticket *domain.Ticket) bool {
	if c.Role != domain.RoleTechnician || c.TechnicianID == nil || ticket.AssignedTechnicianID == nil {
		return false
	}
	return *c.TechnicianID == *ticket.AssignedTechnicianID
}

// Capabilities is the role-derived permission set for ticket mutations. It is
// computed once per operation and threaded explicitly into the lifecycle and
// field-update logic.
type Capabilities struct {
	CanAssign        bool // manual assignment and removal of technicians
	CanEditCore      bool // subject, description, priority, impact, urgency, SLA fields
	CanChangeStatus  bool
	CanSetAnyStatus  bool // admin: any legal transition, including into new
	CanCloseResolved bool // resolved -> closed only (requester path)
	CanGiveFeedback  bool
	CanReopen        bool
	CanCancel        bool
	CanActUnassigned bool // may enter in_progress/on_hold with no assignee
}

// CapabilitiesFor derives the capability set for a role.
func CapabilitiesFor(role domain.Role) Capabilities {
	switch role {
	case domain.RoleAdmin:
		return Capabilities{
			CanAssign:        true,
			CanEditCore:      true,
			CanChangeStatus:  true,
			CanSetAnyStatus:  true,
			CanCloseResolved: true,
			CanGiveFeedback:  true,
			CanReopen:        true,
			CanCancel:        true,
			CanActUnassigned: true,
		}
	case domain.RoleTechnician:
		return Capabilities{
			CanEditCore:      true,
			CanChangeStatus:  true,
			CanCloseResolved: true,
		}
	default:
		return Capabilities{
			CanCloseResolved: true,
			CanGiveFeedback:  true,
			CanReopen:        true,
		}
	}
}

// AllowsTarget reports whether the capability set permits transitioning into
// target at all. Table legality and assignee checks are enforced separately.
func (caps Capabilities) AllowsTarget(current, target domain.TicketStatus) bool {
	if caps.CanSetAnyStatus {
		return true
	}
	if !caps.CanChangeStatus {
		// Requesters only ever move resolved tickets to closed.
		return caps.CanCloseResolved &&
			current == domain.TicketStatusResolved && target == domain.TicketStatusClosed
	}
	// Technicians may reach every state except new.
	return target != domain.TicketStatusNew
}
