package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// LifecycleService owns every status transition. All checks run before the
// transaction: a rejected transition writes nothing, an accepted one lands
// together with its audit rows.
type LifecycleService struct {
	tickets    repository.TicketRepository
	assigner   *AssignmentService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo repository.TicketRepository
	Assigner   *AssignmentService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &LifecycleService{
		tickets:    deps.TicketRepo,
		assigner:   deps.Assigner,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        now,
	}
}

// ChangeStatus moves a ticket along the transition table on behalf of the
// caller.
func (s *LifecycleService) ChangeStatus(ctx context.Context, caller auth.Caller, ticketID string, target domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if !domain.IsValidStatus(target) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": target})
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTransition(caller, ticket, target); err != nil {
		return nil, err
	}

	expected := ticket.UpdatedAt
	oldStatus := ticket.Status
	s.applyStatus(ticket, target)

	entries := []domain.AuditEntry{
		statusEntry(ticket.ID, oldStatus, target, comment, caller.Actor()),
	}
	if err := s.tickets.UpdateWithAudit(ctx, ticket, expected, entries); err != nil {
		return nil, mapUpdateErr(err)
	}
	s.publishStatusChange(ctx, caller, ticket, oldStatus, target, comment)
	return ticket, nil
}

// CloseTicket closes a resolved ticket, optionally recording the requester's
// feedback and satisfaction rating, then triggers the best-effort skill
// evaluation for the assigned technician.
func (s *LifecycleService) CloseTicket(ctx context.Context, caller auth.Caller, ticketID string, feedback *string, rating *int) (*domain.Ticket, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, apperrors.NewValidationError("satisfaction rating must be between 1 and 5",
			map[string]any{"rating": *rating})
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTransition(caller, ticket, domain.TicketStatusClosed); err != nil {
		return nil, err
	}

	caps := auth.CapabilitiesFor(caller.Role)
	expected := ticket.UpdatedAt
	oldStatus := ticket.Status
	s.applyStatus(ticket, domain.TicketStatusClosed)
	if caps.CanGiveFeedback {
		if feedback != nil {
			ticket.Feedback = feedback
		}
		if rating != nil {
			ticket.SatisfactionRating = rating
		}
	}

	actor := caller.Actor()
	entries := []domain.AuditEntry{
		statusEntry(ticket.ID, oldStatus, domain.TicketStatusClosed, derefOr(feedback, ""), actor),
		auditEntry(ticket.ID, domain.AuditTicketClosed, nil, nil, "Ticket closed", actor),
	}
	if err := s.tickets.UpdateWithAudit(ctx, ticket, expected, entries); err != nil {
		return nil, mapUpdateErr(err)
	}
	s.publishStatusChange(ctx, caller, ticket, oldStatus, domain.TicketStatusClosed, derefOr(feedback, ""))

	if s.assigner != nil {
		if err := s.assigner.EvaluateOnClose(ctx, ticket); err != nil {
			s.logger.Warn("skill evaluation did not complete",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return ticket, nil
}

// ReopenTicket moves a resolved or closed ticket back to new. Admin or the
// requester only; the transition bypasses the table and is recorded as
// reactivation.
func (s *LifecycleService) ReopenTicket(ctx context.Context, caller auth.Caller, ticketID, comment string) (*domain.Ticket, error) {
	caps := auth.CapabilitiesFor(caller.Role)
	if !caps.CanReopen {
		return nil, apperrors.NewForbidden("role cannot reopen tickets")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleUser && ticket.RequesterID != caller.UserID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if ticket.Status != domain.TicketStatusResolved && ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(domain.TicketStatusNew))
	}

	expected := ticket.UpdatedAt
	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusNew
	ticket.ReopenedCount++
	ticket.ResolvedAt = nil
	ticket.ClosedAt = nil
	ticket.SatisfactionRating = nil
	ticket.Feedback = nil

	entry := auditEntry(ticket.ID, domain.AuditTicketReactivated,
		strPtr(string(oldStatus)), strPtr(string(domain.TicketStatusNew)), comment, caller.Actor())
	if err := s.tickets.UpdateWithAudit(ctx, ticket, expected, []domain.AuditEntry{entry}); err != nil {
		return nil, mapUpdateErr(err)
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: ticket.ID,
		Actor:    callerActor(caller),
		Payload: events.TicketReopenedPayload{
			FromStatus:    oldStatus,
			ReopenedCount: ticket.ReopenedCount,
		},
	})
	return ticket, nil
}

// CancelTicket soft-deletes a non-terminal ticket. Admin only.
func (s *LifecycleService) CancelTicket(ctx context.Context, caller auth.Caller, ticketID, reason string) (*domain.Ticket, error) {
	caps := auth.CapabilitiesFor(caller.Role)
	if !caps.CanCancel {
		return nil, apperrors.NewForbidden("role cannot cancel tickets")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if domain.IsTerminalStatus(ticket.Status) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(domain.TicketStatusCancelled))
	}

	expected := ticket.UpdatedAt
	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusCancelled

	actor := caller.Actor()
	entries := []domain.AuditEntry{
		statusEntry(ticket.ID, oldStatus, domain.TicketStatusCancelled, reason, actor),
		auditEntry(ticket.ID, domain.AuditTicketCancelled, nil, nil, reason, actor),
	}
	if err := s.tickets.UpdateWithAudit(ctx, ticket, expected, entries); err != nil {
		return nil, mapUpdateErr(err)
	}
	s.publishStatusChange(ctx, caller, ticket, oldStatus, domain.TicketStatusCancelled, reason)
	return ticket, nil
}

func (s *LifecycleService) authorizeTransition(caller auth.Caller, ticket *domain.Ticket, target domain.TicketStatus) error {
	if !domain.IsValidTransition(ticket.Status, target) {
		return apperrors.NewInvalidTransition(string(ticket.Status), string(target))
	}
	caps := auth.CapabilitiesFor(caller.Role)
	if !caps.AllowsTarget(ticket.Status, target) {
		return apperrors.NewForbidden("role cannot perform this transition")
	}
	if caller.Role == domain.RoleUser && ticket.RequesterID != caller.UserID {
		return apperrors.NewForbidden("access denied")
	}
	if caller.Role == domain.RoleTechnician && !caller.IsAssignee(ticket) {
		return apperrors.NewForbidden("only the assigned technician may change this ticket's status")
	}
	if ticket.AssignedTechnicianID == nil && !caps.CanActUnassigned &&
		(target == domain.TicketStatusInProgress || target == domain.TicketStatusOnHold) {
		return apperrors.NewValidationError("ticket has no assigned technician", nil)
	}
	return nil
}

// applyStatus mutates the ticket for the accepted transition: timestamps and
// the late-resolution SLA flag.
func (s *LifecycleService) applyStatus(ticket *domain.Ticket, target domain.TicketStatus) {
	now := s.now()
	switch target {
	case domain.TicketStatusResolved:
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
		}
		s.flagLateResolution(ticket, now)
	case domain.TicketStatusClosed:
		ticket.ClosedAt = &now
		s.flagLateResolution(ticket, now)
	}
	ticket.Status = target
}

func (s *LifecycleService) flagLateResolution(ticket *domain.Ticket, at time.Time) {
	if ticket.ResolutionDue != nil && at.After(*ticket.ResolutionDue) {
		ticket.SLAViolated = true
	}
}

func (s *LifecycleService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *LifecycleService) publishStatusChange(ctx context.Context, caller auth.Caller, ticket *domain.Ticket, oldStatus, newStatus domain.TicketStatus, comment string) {
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    callerActor(caller),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
}

func statusEntry(ticketID string, oldStatus, newStatus domain.TicketStatus, comment, actor string) domain.AuditEntry {
	return auditEntry(ticketID, domain.AuditStatusChanged,
		strPtr(string(oldStatus)), strPtr(string(newStatus)), comment, actor)
}
