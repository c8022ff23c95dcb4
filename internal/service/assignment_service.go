package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/ai"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/match"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// Auto-assignment outcome labels for metrics.
const (
	outcomeAssigned = "assigned"
	outcomeNoMatch  = "no_match"
	outcomeFailed   = "failed"
	outcomeDisabled = "disabled"
)

// AssignmentService owns technician assignment: the AI-delegated path on
// creation, manual admin assignment, and the local candidate ranking built
// on skill matching and workload.
type AssignmentService struct {
	tickets     repository.TicketRepository
	technicians repository.TechnicianRepository
	tasks       repository.TaskRepository
	ai          *ai.Client
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	workload    match.WorkloadConfig
	strictMatch bool
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo     repository.TicketRepository
	TechnicianRepo repository.TechnicianRepository
	TaskRepo       repository.TaskRepository
	AI             *ai.Client
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Workload       match.WorkloadConfig
	StrictMatch    bool
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	workload := deps.Workload
	if workload.MaxAggregate <= 0 {
		workload = match.DefaultWorkloadConfig()
	}
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		technicians: deps.TechnicianRepo,
		tasks:       deps.TaskRepo,
		ai:          deps.AI,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		workload:    workload,
		strictMatch: deps.StrictMatch,
	}
}

// AutoAssign delegates the assignment decision for a fresh ticket to the AI
// backend. It runs after the creation transaction and holds no lock across
// the call; every outcome lands in the ticket's audit trail and none of them
// propagates as a creation failure.
func (s *AssignmentService) AutoAssign(ctx context.Context, ticket *domain.Ticket) error {
	if s.ai == nil || !s.ai.Enabled() {
		s.metrics.RecordAIAssignment(outcomeDisabled)
		return nil
	}

	result, err := s.ai.AssignTicket(ctx, ai.AssignmentTicket{
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Priority:    string(ticket.Priority),
		Impact:      string(ticket.Impact),
		Urgency:     string(ticket.Urgency),
		Tags:        ticket.Tags,
		RequesterID: ticket.RequesterID,
	})
	if err != nil {
		s.metrics.RecordAIAssignment(outcomeFailed)
		return s.recordOutcome(ctx, ticket.ID, domain.AuditAIAssignmentFailed, err.Error())
	}

	if !result.Success {
		detail := result.ErrorMessage
		if detail == "" {
			detail = "assignment backend reported failure"
		}
		s.metrics.RecordAIAssignment(outcomeFailed)
		return s.recordOutcome(ctx, ticket.ID, domain.AuditAIAssignmentFailed, detail)
	}

	technicianID := result.TechnicianIDValue()
	if technicianID == "" {
		s.metrics.RecordAIAssignment(outcomeNoMatch)
		return s.recordOutcome(ctx, ticket.ID, domain.AuditAINoAssignment, "no suitable technician")
	}

	tech, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.metrics.RecordAIAssignment(outcomeFailed)
			return s.recordOutcome(ctx, ticket.ID, domain.AuditAIAssignmentFailed,
				fmt.Sprintf("backend selected unknown technician %s", technicianID))
		}
		return apperrors.MapError(err)
	}
	if !tech.IsActive {
		s.metrics.RecordAIAssignment(outcomeFailed)
		return s.recordOutcome(ctx, ticket.ID, domain.AuditAIAssignmentFailed,
			fmt.Sprintf("backend selected inactive technician %s", technicianID))
	}

	expected := ticket.UpdatedAt
	oldStatus := ticket.Status
	ticket.AssignedTechnicianID = &tech.ID
	if result.Justification != "" {
		ticket.Justification = &result.Justification
	}
	entries := []domain.AuditEntry{
		auditEntry(ticket.ID, domain.AuditAIAssigned, nil, strPtr(tech.ID), result.Justification, aiActorID),
	}
	if ticket.Status == domain.TicketStatusNew {
		ticket.Status = domain.TicketStatusAssigned
		entries = append(entries, statusEntry(ticket.ID, oldStatus, domain.TicketStatusAssigned, "Auto-assigned", aiActorID))
	}
	if err := s.tickets.UpdateWithAudit(ctx, ticket, expected, entries); err != nil {
		return mapUpdateErr(err)
	}
	s.metrics.RecordAIAssignment(outcomeAssigned)

	justification := result.Justification
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    systemActor(),
		Payload: events.TicketAssignedPayload{
			TechnicianID:  ticket.AssignedTechnicianID,
			Automatic:     true,
			Justification: &justification,
		},
	})
	return nil
}

// Assign sets the ticket's technician manually. Admin only. Assigning the
// current assignee again reports alreadyAssigned without touching the ledger.
func (s *AssignmentService) Assign(ctx context.Context, caller auth.Caller, ticketID, technicianID, justification string) (ticket *domain.Ticket, alreadyAssigned bool, err error) {
	caps := auth.CapabilitiesFor(caller.Role)
	if !caps.CanAssign {
		return nil, false, apperrors.NewForbidden("role cannot assign technicians")
	}

	ticket, err = s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, false, err
	}
	if domain.IsTerminalStatus(ticket.Status) {
		return nil, false, apperrors.NewValidationError("cannot assign a ticket in a terminal status",
			map[string]any{"status": ticket.Status})
	}
	tech, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return nil, false, apperrors.MapError(err)
	}
	if !tech.IsActive {
		return nil, false, apperrors.NewValidationError("technician is inactive",
			map[string]any{"technician_id": technicianID})
	}
	if ticket.AssignedTechnicianID != nil && *ticket.AssignedTechnicianID == tech.ID {
		return ticket, true, nil
	}

	expected := ticket.UpdatedAt
	oldAssignee := ticket.AssignedTechnicianID
	oldStatus := ticket.Status
	ticket.AssignedTechnicianID = &tech.ID
	if justification != "" {
		ticket.Justification = &justification
	} else {
		ticket.Justification = nil
	}

	actor := caller.Actor()
	entries := []domain.AuditEntry{
		auditEntry(ticket.ID, domain.AuditAssignedTechnician, oldAssignee, strPtr(tech.ID), justification, actor),
	}
	if ticket.Status == domain.TicketStatusNew {
		ticket.Status = domain.TicketStatusAssigned
		entries = append(entries, statusEntry(ticket.ID, oldStatus, domain.TicketStatusAssigned, "Technician assigned", actor))
	}
	if err := s.tickets.UpdateWithAudit(ctx, ticket, expected, entries); err != nil {
		return nil, false, mapUpdateErr(err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    callerActor(caller),
		Payload: events.TicketAssignedPayload{
			TechnicianID: ticket.AssignedTechnicianID,
			Automatic:    false,
		},
	})
	return ticket, false, nil
}

// Remove clears the ticket's technician. Admin only.
func (s *AssignmentService) Remove(ctx context.Context, caller auth.Caller, ticketID string) (*domain.Ticket, error) {
	caps := auth.CapabilitiesFor(caller.Role)
	if !caps.CanAssign {
		return nil, apperrors.NewForbidden("role cannot remove technicians")
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AssignedTechnicianID == nil {
		return nil, apperrors.NewValidationError("ticket has no assigned technician", nil)
	}
	if domain.IsTerminalStatus(ticket.Status) {
		return nil, apperrors.NewValidationError("cannot modify a ticket in a terminal status",
			map[string]any{"status": ticket.Status})
	}

	expected := ticket.UpdatedAt
	oldAssignee := ticket.AssignedTechnicianID
	ticket.AssignedTechnicianID = nil
	ticket.Justification = nil

	entry := auditEntry(ticket.ID, domain.AuditRemovedTechnician, oldAssignee, nil, "Technician removed", caller.Actor())
	if err := s.tickets.UpdateWithAudit(ctx, ticket, expected, []domain.AuditEntry{entry}); err != nil {
		return nil, mapUpdateErr(err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    callerActor(caller),
		Payload:  events.TicketAssignedPayload{TechnicianID: nil, Automatic: false},
	})
	return ticket, nil
}

// ListCandidatesBySkills ranks active technicians for a required-skill set:
// least loaded first, then strongest matched proficiency, then id.
func (s *AssignmentService) ListCandidatesBySkills(ctx context.Context, requiredSkillIDs []string) ([]match.Candidate, error) {
	filter := repository.TechnicianFilter{ActiveOnly: true}
	if !s.strictMatch {
		filter.SkillIDs = requiredSkillIDs
	}
	techs, err := s.technicians.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	candidates := make([]match.Candidate, 0, len(techs))
	for i := range techs {
		tech := techs[i]
		if !match.Matches(&tech, requiredSkillIDs, s.strictMatch) {
			continue
		}
		workload, err := s.ComputeWorkload(ctx, tech.ID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, match.Candidate{
			Technician:  tech,
			Workload:    workload,
			Proficiency: match.MatchedProficiency(&tech, requiredSkillIDs),
		})
	}
	return match.RankCandidates(candidates), nil
}

// ComputeWorkload scores a technician's open load on the 0..100 scale.
func (s *AssignmentService) ComputeWorkload(ctx context.Context, technicianID string) (int, error) {
	active, err := s.tickets.ListActiveByTechnician(ctx, technicianID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return match.Workload(active, s.workload), nil
}

// EvaluateOnClose asks the AI backend to re-score the assigned technician's
// skills from the closed ticket's resolution context. Best effort: failures
// are reported to the caller for logging but change nothing.
func (s *AssignmentService) EvaluateOnClose(ctx context.Context, ticket *domain.Ticket) error {
	if s.ai == nil || !s.ai.Enabled() {
		return nil
	}
	if ticket.AssignedTechnicianID == nil {
		return nil
	}

	payload := ai.EvaluationTicket{
		ID:                   ticket.ID,
		Subject:              ticket.Subject,
		Description:          ticket.Description,
		Resolution:           derefOr(ticket.Feedback, ""),
		Status:               string(ticket.Status),
		Priority:             string(ticket.Priority),
		Impact:               string(ticket.Impact),
		Urgency:              string(ticket.Urgency),
		RequiredSkills:       ticket.RequiredSkillIDs,
		AssignedTechnicianID: *ticket.AssignedTechnicianID,
		Feedback:             derefOr(ticket.Feedback, ""),
		SatisfactionRating:   ticket.SatisfactionRating,
	}
	if s.tasks != nil {
		if tasks, err := s.tasks.ListTasksByTicket(ctx, ticket.ID); err == nil {
			for _, task := range tasks {
				payload.Tasks = append(payload.Tasks, task.Title)
			}
		}
		if logs, err := s.tasks.ListWorkLogsByTicket(ctx, ticket.ID); err == nil {
			for _, log := range logs {
				payload.WorkLogs = append(payload.WorkLogs, log.Summary)
			}
		}
	}

	result, err := s.ai.EvaluateSkills(ctx, payload)
	if err != nil {
		return err
	}
	if len(result.Technician.Skills) == 0 {
		return nil
	}

	skills := make([]domain.TechnicianSkill, 0, len(result.Technician.Skills))
	for _, skill := range result.Technician.Skills {
		proficiency := skill.Proficiency
		if proficiency < 0 {
			proficiency = 0
		}
		if proficiency > 100 {
			proficiency = 100
		}
		skills = append(skills, domain.TechnicianSkill{
			SkillID:     string(skill.SkillID),
			Proficiency: proficiency,
		})
	}
	if err := s.technicians.ReplaceSkills(ctx, *ticket.AssignedTechnicianID, skills); err != nil {
		return apperrors.MapError(err)
	}

	entry := auditEntry(ticket.ID, domain.AuditSkillsEvaluated, nil,
		strPtr(fmt.Sprintf("%d skills updated", len(skills))), "Post-resolution skill evaluation", aiActorID)
	if err := s.tickets.AppendAudit(ctx, ticket.ID, []domain.AuditEntry{entry}); err != nil {
		return apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventSkillsEvaluated,
		TicketID: ticket.ID,
		Actor:    systemActor(),
		Payload: events.SkillsEvaluatedPayload{
			TechnicianID: *ticket.AssignedTechnicianID,
			SkillCount:   len(skills),
		},
	})
	return nil
}

// recordOutcome appends a single ledger entry for a non-assigning AI outcome.
func (s *AssignmentService) recordOutcome(ctx context.Context, ticketID string, action domain.AuditAction, detail string) error {
	entry := auditEntry(ticketID, action, nil, nil, detail, aiActorID)
	if err := s.tickets.AppendAudit(ctx, ticketID, []domain.AuditEntry{entry}); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AssignmentService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}
