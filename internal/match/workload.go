// Package match holds the pure scoring primitives behind assignment
// decisions: the derived workload metric and skill-based candidate ranking.
// Nothing here touches storage; callers pass in a consistent snapshot of the
// active-ticket set.
package match

import "github.com/spec-kit/servicedesk/internal/domain"

// WorkloadConfig carries the injected normalization constants. Defaults match
// the historical tuning but nothing depends on the exact values beyond
// monotonicity.
type WorkloadConfig struct {
	MaxAggregate int
	TicketCap    int
}

// DefaultWorkloadConfig returns the standard tuning.
func DefaultWorkloadConfig() WorkloadConfig {
	return WorkloadConfig{MaxAggregate: 200, TicketCap: 20}
}

var priorityRank = map[domain.TicketPriority]int{
	domain.TicketPriorityLow:      1,
	domain.TicketPriorityNormal:   3,
	domain.TicketPriorityHigh:     5,
	domain.TicketPriorityCritical: 8,
}

var impactRank = map[domain.TicketImpact]int{
	domain.TicketImpactLow:      1,
	domain.TicketImpactMedium:   2,
	domain.TicketImpactHigh:     4,
	domain.TicketImpactCritical: 6,
}

var urgencyRank = map[domain.TicketUrgency]int{
	domain.TicketUrgencyLow:      1,
	domain.TicketUrgencyNormal:   2,
	domain.TicketUrgencyHigh:     4,
	domain.TicketUrgencyCritical: 6,
}

// TicketComplexity scores a single ticket from its priority, impact and
// urgency ranks, capped so one ticket cannot dominate the aggregate.
func TicketComplexity(t *domain.Ticket, cap int) int {
	score := priorityRank[t.Priority] + impactRank[t.Impact] + urgencyRank[t.Urgency]
	if cap > 0 && score > cap {
		score = cap
	}
	return score
}

// Workload computes the derived 0-100 load metric from a technician's active
// tickets. Tickets outside the active status set contribute nothing; the
// caller is expected to have filtered, but the guard keeps the metric honest
// either way.
func Workload(active []domain.Ticket, cfg WorkloadConfig) int {
	if cfg.MaxAggregate <= 0 {
		cfg.MaxAggregate = DefaultWorkloadConfig().MaxAggregate
	}
	total := 0
	for i := range active {
		if !domain.IsActiveStatus(active[i].Status) {
			continue
		}
		total += TicketComplexity(&active[i], cfg.TicketCap)
	}
	pct := (total*100 + cfg.MaxAggregate/2) / cfg.MaxAggregate
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
