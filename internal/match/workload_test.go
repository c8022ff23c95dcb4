package match

import (
	"testing"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func activeTicket(priority domain.TicketPriority, impact domain.TicketImpact, urgency domain.TicketUrgency) domain.Ticket {
	return domain.Ticket{
		Status:   domain.TicketStatusInProgress,
		Priority: priority,
		Impact:   impact,
		Urgency:  urgency,
	}
}

func TestTicketComplexity(t *testing.T) {
	cases := []struct {
		priority domain.TicketPriority
		impact   domain.TicketImpact
		urgency  domain.TicketUrgency
		cap      int
		want     int
	}{
		{domain.TicketPriorityLow, domain.TicketImpactLow, domain.TicketUrgencyLow, 20, 3},
		{domain.TicketPriorityNormal, domain.TicketImpactMedium, domain.TicketUrgencyNormal, 20, 7},
		{domain.TicketPriorityHigh, domain.TicketImpactHigh, domain.TicketUrgencyHigh, 20, 13},
		{domain.TicketPriorityCritical, domain.TicketImpactCritical, domain.TicketUrgencyCritical, 20, 20},
		// uncapped critical everything is 8+6+6
		{domain.TicketPriorityCritical, domain.TicketImpactCritical, domain.TicketUrgencyCritical, 0, 20},
		{domain.TicketPriorityCritical, domain.TicketImpactCritical, domain.TicketUrgencyCritical, 10, 10},
	}
	for _, tt := range cases {
		ticket := activeTicket(tt.priority, tt.impact, tt.urgency)
		if got := TicketComplexity(&ticket, tt.cap); got != tt.want {
			t.Fatalf("TicketComplexity(%s/%s/%s, cap=%d)=%d, want %d",
				tt.priority, tt.impact, tt.urgency, tt.cap, got, tt.want)
		}
	}
}

func TestWorkloadEmpty(t *testing.T) {
	if got := Workload(nil, DefaultWorkloadConfig()); got != 0 {
		t.Fatalf("Workload(nil)=%d, want 0", got)
	}
}

func TestWorkloadIgnoresInactive(t *testing.T) {
	tickets := []domain.Ticket{
		activeTicket(domain.TicketPriorityCritical, domain.TicketImpactCritical, domain.TicketUrgencyCritical),
		{Status: domain.TicketStatusResolved, Priority: domain.TicketPriorityCritical, Impact: domain.TicketImpactCritical, Urgency: domain.TicketUrgencyCritical},
		{Status: domain.TicketStatusClosed, Priority: domain.TicketPriorityCritical, Impact: domain.TicketImpactCritical, Urgency: domain.TicketUrgencyCritical},
	}
	// only the first contributes: 20/200 -> 10%
	if got := Workload(tickets, DefaultWorkloadConfig()); got != 10 {
		t.Fatalf("Workload=%d, want 10", got)
	}
}

func TestWorkloadRoundingAndClamp(t *testing.T) {
	cfg := DefaultWorkloadConfig()

	// one low/low/low ticket: 3/200 -> 1.5% rounds to 2
	one := []domain.Ticket{activeTicket(domain.TicketPriorityLow, domain.TicketImpactLow, domain.TicketUrgencyLow)}
	if got := Workload(one, cfg); got != 2 {
		t.Fatalf("Workload=%d, want 2", got)
	}

	// 15 maxed tickets: 300/200 clamps to 100
	var many []domain.Ticket
	for i := 0; i < 15; i++ {
		many = append(many, activeTicket(domain.TicketPriorityCritical, domain.TicketImpactCritical, domain.TicketUrgencyCritical))
	}
	if got := Workload(many, cfg); got != 100 {
		t.Fatalf("Workload=%d, want 100", got)
	}
}

func TestWorkloadMonotonic(t *testing.T) {
	cfg := DefaultWorkloadConfig()
	var tickets []domain.Ticket
	prev := 0
	for i := 0; i < 12; i++ {
		tickets = append(tickets, activeTicket(domain.TicketPriorityNormal, domain.TicketImpactMedium, domain.TicketUrgencyNormal))
		got := Workload(tickets, cfg)
		if got < prev {
			t.Fatalf("workload decreased from %d to %d after adding a ticket", prev, got)
		}
		prev = got
	}
}
