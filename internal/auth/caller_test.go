package auth

import (
	"testing"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func TestActor(t *testing.T) {
	techID := "tech-7"
	cases := []struct {
		name   string
		caller Caller
		want   string
	}{
		{"admin", Caller{Role: domain.RoleAdmin, UserID: "a1"}, "admin:a1"},
		{"requester", Caller{Role: domain.RoleUser, UserID: "u1"}, "user:u1"},
		{"technician", Caller{Role: domain.RoleTechnician, UserID: "u2", TechnicianID: &techID}, "technician:tech-7"},
		{"technician without profile", Caller{Role: domain.RoleTechnician, UserID: "u3"}, "technician:u3"},
	}
	for _, tc := range cases {
		if got := tc.caller.Actor(); got != tc.want {
			t.Errorf("%s: Actor() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestIsAssignee(t *testing.T) {
	techID := "tech-1"
	otherID := "tech-2"
	assigned := &domain.Ticket{AssignedTechnicianID: &techID}
	unassigned := &domain.Ticket{}

	cases := []struct {
		name   string
		caller Caller
		ticket *domain.Ticket
		want   bool
	}{
		{"assignee", Caller{Role: domain.RoleTechnician, TechnicianID: &techID}, assigned, true},
		{"other technician", Caller{Role: domain.RoleTechnician, TechnicianID: &otherID}, assigned, false},
		{"admin never assignee", Caller{Role: domain.RoleAdmin, TechnicianID: &techID}, assigned, false},
		{"unassigned ticket", Caller{Role: domain.RoleTechnician, TechnicianID: &techID}, unassigned, false},
		{"no technician profile", Caller{Role: domain.RoleTechnician}, assigned, false},
	}
	for _, tc := range cases {
		if got := tc.caller.IsAssignee(tc.ticket); got != tc.want {
			t.Errorf("%s: IsAssignee() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAllowsTarget(t *testing.T) {
	cases := []struct {
		name    string
		role    domain.Role
		current domain.TicketStatus
		target  domain.TicketStatus
		want    bool
	}{
		{"admin any", domain.RoleAdmin, domain.TicketStatusClosed, domain.TicketStatusNew, true},
		{"technician forward", domain.RoleTechnician, domain.TicketStatusAssigned, domain.TicketStatusInProgress, true},
		{"technician resolve", domain.RoleTechnician, domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{"technician cannot target new", domain.RoleTechnician, domain.TicketStatusAssigned, domain.TicketStatusNew, false},
		{"requester close resolved", domain.RoleUser, domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{"requester close unresolved", domain.RoleUser, domain.TicketStatusInProgress, domain.TicketStatusClosed, false},
		{"requester anything else", domain.RoleUser, domain.TicketStatusNew, domain.TicketStatusAssigned, false},
	}
	for _, tc := range cases {
		caps := CapabilitiesFor(tc.role)
		if got := caps.AllowsTarget(tc.current, tc.target); got != tc.want {
			t.Errorf("%s: AllowsTarget(%s, %s) = %v, want %v", tc.name, tc.current, tc.target, got, tc.want)
		}
	}
}
