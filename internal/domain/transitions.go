package domain

// allowedTransitions is the ticket lifecycle table. Reopening a resolved or
// closed ticket is a separate explicit operation, not a row here; cancelled
// is reachable from every non-terminal state.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:        {TicketStatusAssigned, TicketStatusCancelled},
	TicketStatusAssigned:   {TicketStatusInProgress, TicketStatusOnHold, TicketStatusResolved, TicketStatusCancelled},
	TicketStatusInProgress: {TicketStatusOnHold, TicketStatusResolved, TicketStatusCancelled},
	TicketStatusOnHold:     {TicketStatusInProgress, TicketStatusResolved, TicketStatusCancelled},
	TicketStatusResolved:   {TicketStatusClosed, TicketStatusCancelled},
	TicketStatusClosed:     {},
	TicketStatusCancelled:  {},
}

// IsValidTransition reports whether current -> next appears in the lifecycle
// table, independent of who is asking.
func IsValidTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TransitionsFrom returns the legal target states from current.
func TransitionsFrom(current TicketStatus) []TicketStatus {
	targets := allowedTransitions[current]
	out := make([]TicketStatus, len(targets))
	copy(out, targets)
	return out
}
