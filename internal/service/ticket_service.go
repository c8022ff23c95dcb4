package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// TicketService coordinates creation, field updates and the technician-facing
// task/work-log workflow. Status transitions live in LifecycleService,
// assignment in AssignmentService.
type TicketService struct {
	tickets     repository.TicketRepository
	technicians repository.TechnicianRepository
	skills      repository.SkillRepository
	tasks       repository.TaskRepository
	assigner    *AssignmentService
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	TechnicianRepo repository.TechnicianRepository
	SkillRepo      repository.SkillRepository
	TaskRepo       repository.TaskRepository
	Assigner       *AssignmentService
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject          string
	Description      string
	Priority         domain.TicketPriority
	Impact           domain.TicketImpact
	Urgency          domain.TicketUrgency
	RequiredSkillIDs []string
	Tags             []string
	ResolutionDue    *time.Time
}

// TicketUpdateInput carries optional field changes; nil means "leave as is".
type TicketUpdateInput struct {
	Subject          *string
	Description      *string
	Priority         *domain.TicketPriority
	Impact           *domain.TicketImpact
	Urgency          *domain.TicketUrgency
	RequiredSkillIDs *[]string
	Tags             *[]string
	SLAViolated      *bool
	ResolutionDue    *time.Time
	EscalationCount  *int
}

// TicketListInput describes listing filters accepted from handlers.
type TicketListInput struct {
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	TechnicianID *string
	SLAViolated  *bool
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		technicians: deps.TechnicianRepo,
		skills:      deps.SkillRepo,
		tasks:       deps.TaskRepo,
		assigner:    deps.Assigner,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// CreateTicket creates a ticket in status new with its opening ledger entry,
// then hands the ticket to the assignment engine. Assignment never fails the
// creation: whatever happens there lands in the audit trail instead.
func (s *TicketService) CreateTicket(ctx context.Context, caller auth.Caller, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityNormal
	}
	if input.Impact == "" {
		input.Impact = domain.TicketImpactLow
	}
	if input.Urgency == "" {
		input.Urgency = domain.TicketUrgencyNormal
	}
	if !domain.IsValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	if !domain.IsValidImpact(input.Impact) {
		return nil, apperrors.NewValidationError("unknown impact", map[string]any{"impact": input.Impact})
	}
	if !domain.IsValidUrgency(input.Urgency) {
		return nil, apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": input.Urgency})
	}
	if err := s.checkSkillsExist(ctx, input.RequiredSkillIDs); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ExternalKey:      generateTicketKey(),
		RequesterID:      caller.UserID,
		Subject:          subject,
		Description:      strings.TrimSpace(input.Description),
		Status:           domain.TicketStatusNew,
		Priority:         input.Priority,
		Impact:           input.Impact,
		Urgency:          input.Urgency,
		RequiredSkillIDs: input.RequiredSkillIDs,
		Tags:             input.Tags,
		ResolutionDue:    input.ResolutionDue,
	}

	created := auditEntry("", domain.AuditTicketCreated, nil, strPtr(string(domain.TicketStatusNew)), "Ticket created", caller.Actor())
	if err := s.tickets.Create(ctx, ticket, []domain.AuditEntry{created}); err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    callerActor(caller),
		Payload: events.TicketCreatedPayload{
			RequesterID: ticket.RequesterID,
			Priority:    ticket.Priority,
			Impact:      ticket.Impact,
			Urgency:     ticket.Urgency,
			Subject:     ticket.Subject,
		},
	})

	if s.assigner != nil {
		if err := s.assigner.AutoAssign(ctx, ticket); err != nil {
			s.logger.Warn("auto assignment did not complete",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return ticket, nil
}

// UpdateTicket applies field changes with one audit row per changed field.
// When nothing changed it reports changed=false and writes no audit rows.
func (s *TicketService) UpdateTicket(ctx context.Context, caller auth.Caller, ticketID string, input TicketUpdateInput) (*domain.Ticket, bool, error) {
	caps := auth.CapabilitiesFor(caller.Role)
	if !caps.CanEditCore {
		return nil, false, apperrors.NewForbidden("role cannot edit ticket fields")
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, false, err
	}
	if caller.Role == domain.RoleTechnician && !caller.IsAssignee(ticket) {
		return nil, false, apperrors.NewForbidden("only the assigned technician may edit this ticket")
	}
	if domain.IsTerminalStatus(ticket.Status) {
		return nil, false, apperrors.NewValidationError("cannot update a ticket in a terminal status",
			map[string]any{"status": ticket.Status})
	}

	expected := ticket.UpdatedAt
	actor := caller.Actor()
	var entries []domain.AuditEntry

	record := func(field, oldVal, newVal string) {
		entries = append(entries, auditEntry(ticket.ID, domain.AuditTicketUpdated,
			strPtr(oldVal), strPtr(newVal), fmt.Sprintf("%s changed", field), actor))
	}

	if input.Subject != nil {
		if subject := strings.TrimSpace(*input.Subject); subject != "" && subject != ticket.Subject {
			record("subject", ticket.Subject, subject)
			ticket.Subject = subject
		}
	}
	if input.Description != nil {
		if desc := strings.TrimSpace(*input.Description); desc != ticket.Description {
			record("description", ticket.Description, desc)
			ticket.Description = desc
		}
	}
	if input.Priority != nil && *input.Priority != ticket.Priority {
		if !domain.IsValidPriority(*input.Priority) {
			return nil, false, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
		}
		record("priority", string(ticket.Priority), string(*input.Priority))
		ticket.Priority = *input.Priority
	}
	if input.Impact != nil && *input.Impact != ticket.Impact {
		if !domain.IsValidImpact(*input.Impact) {
			return nil, false, apperrors.NewValidationError("unknown impact", map[string]any{"impact": *input.Impact})
		}
		record("impact", string(ticket.Impact), string(*input.Impact))
		ticket.Impact = *input.Impact
	}
	if input.Urgency != nil && *input.Urgency != ticket.Urgency {
		if !domain.IsValidUrgency(*input.Urgency) {
			return nil, false, apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": *input.Urgency})
		}
		record("urgency", string(ticket.Urgency), string(*input.Urgency))
		ticket.Urgency = *input.Urgency
	}
	if input.RequiredSkillIDs != nil && !sameStrings(ticket.RequiredSkillIDs, *input.RequiredSkillIDs) {
		if err := s.checkSkillsExist(ctx, *input.RequiredSkillIDs); err != nil {
			return nil, false, err
		}
		record("required_skills", strings.Join(ticket.RequiredSkillIDs, ","), strings.Join(*input.RequiredSkillIDs, ","))
		ticket.RequiredSkillIDs = *input.RequiredSkillIDs
	}
	if input.Tags != nil && !sameStrings(ticket.Tags, *input.Tags) {
		record("tags", strings.Join(ticket.Tags, ","), strings.Join(*input.Tags, ","))
		ticket.Tags = *input.Tags
	}
	if input.SLAViolated != nil && *input.SLAViolated != ticket.SLAViolated {
		record("sla_violated", fmt.Sprintf("%t", ticket.SLAViolated), fmt.Sprintf("%t", *input.SLAViolated))
		ticket.SLAViolated = *input.SLAViolated
	}
	if input.ResolutionDue != nil && !input.ResolutionDue.Equal(derefTime(ticket.ResolutionDue)) {
		record("resolution_due", formatTimePtr(ticket.ResolutionDue), input.ResolutionDue.UTC().Format(time.RFC3339))
		ticket.ResolutionDue = input.ResolutionDue
	}
	if input.EscalationCount != nil && *input.EscalationCount != ticket.EscalationCount {
		if *input.EscalationCount < ticket.EscalationCount {
			return nil, false, apperrors.NewValidationError("escalation count cannot decrease",
				map[string]any{"current": ticket.EscalationCount})
		}
		record("escalation_count", fmt.Sprintf("%d", ticket.EscalationCount), fmt.Sprintf("%d", *input.EscalationCount))
		ticket.EscalationCount = *input.EscalationCount
	}

	if len(entries) == 0 {
		return ticket, false, nil
	}

	if err := s.tickets.UpdateWithAudit(ctx, ticket, expected, entries); err != nil {
		return nil, false, mapUpdateErr(err)
	}
	return ticket, true, nil
}

// GetTicket fetches a ticket with its audit trail, tasks and work logs.
// Requesters can only see their own tickets.
func (s *TicketService) GetTicket(ctx context.Context, caller auth.Caller, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleUser && ticket.RequesterID != caller.UserID {
		return nil, apperrors.NewForbidden("access denied")
	}

	trail, err := s.tickets.ListAudit(ctx, ticket.ID, false)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.AuditTrail = trail

	if s.tasks != nil {
		tasks, err := s.tasks.ListTasksByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		logs, err := s.tasks.ListWorkLogsByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.Tasks = tasks
		ticket.WorkLogs = logs
	}
	return ticket, nil
}

// ListTickets returns tickets visible to the caller. Requesters are pinned to
// their own tickets regardless of filters.
func (s *TicketService) ListTickets(ctx context.Context, caller auth.Caller, input TicketListInput) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		Statuses:             input.Statuses,
		Priorities:           input.Priorities,
		AssignedTechnicianID: input.TechnicianID,
		SLAViolated:          input.SLAViolated,
		SearchTerm:           input.SearchTerm,
		CreatedFrom:          input.CreatedFrom,
		CreatedTo:            input.CreatedTo,
		Limit:                input.Limit,
		Offset:               input.Offset,
	}
	if caller.Role == domain.RoleUser {
		requesterID := caller.UserID
		filter.RequesterID = &requesterID
		filter.AssignedTechnicianID = nil
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAuditTrail returns the ledger for a ticket, insertion order by default.
func (s *TicketService) ListAuditTrail(ctx context.Context, caller auth.Caller, ticketID string, newestFirst bool) ([]domain.AuditEntry, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleUser && ticket.RequesterID != caller.UserID {
		return nil, apperrors.NewForbidden("access denied")
	}
	trail, err := s.tickets.ListAudit(ctx, ticket.ID, newestFirst)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return trail, nil
}

// AddTask records a sub-task on an active ticket. Assigned technician or
// admin only.
func (s *TicketService) AddTask(ctx context.Context, caller auth.Caller, ticketID, title string) (*domain.Task, error) {
	ticket, err := s.requireWorkAccess(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.NewValidationError("task title is required", nil)
	}

	technicianID, err := workAttribution(caller, ticket)
	if err != nil {
		return nil, err
	}
	task := &domain.Task{
		TicketID:     ticket.ID,
		TechnicianID: technicianID,
		Title:        title,
		Status:       domain.TaskStatusPending,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	entry := auditEntry(ticket.ID, domain.AuditTaskAdded, nil, strPtr(title), "Task added", caller.Actor())
	if err := s.tickets.AppendAudit(ctx, ticket.ID, []domain.AuditEntry{entry}); err != nil {
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

// AddWorkLog records time spent on an active ticket. Assigned technician or
// admin only.
func (s *TicketService) AddWorkLog(ctx context.Context, caller auth.Caller, ticketID, note string, minutes int) (*domain.WorkLog, error) {
	ticket, err := s.requireWorkAccess(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, apperrors.NewValidationError("work log summary is required", nil)
	}
	if minutes <= 0 {
		return nil, apperrors.NewValidationError("minutes must be positive", map[string]any{"minutes": minutes})
	}

	technicianID, err := workAttribution(caller, ticket)
	if err != nil {
		return nil, err
	}
	log := &domain.WorkLog{
		TicketID:     ticket.ID,
		TechnicianID: technicianID,
		Summary:      note,
		Minutes:      minutes,
	}
	if err := s.tasks.CreateWorkLog(ctx, log); err != nil {
		return nil, apperrors.MapError(err)
	}
	entry := auditEntry(ticket.ID, domain.AuditWorkLogAdded, nil, strPtr(fmt.Sprintf("%d min", minutes)), "Work log added", caller.Actor())
	if err := s.tickets.AppendAudit(ctx, ticket.ID, []domain.AuditEntry{entry}); err != nil {
		return nil, apperrors.MapError(err)
	}
	return log, nil
}

func (s *TicketService) requireWorkAccess(ctx context.Context, caller auth.Caller, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if domain.IsTerminalStatus(ticket.Status) {
		return nil, apperrors.NewValidationError("ticket is in a terminal status", map[string]any{"status": ticket.Status})
	}
	switch caller.Role {
	case domain.RoleAdmin:
	case domain.RoleTechnician:
		if !caller.IsAssignee(ticket) {
			return nil, apperrors.NewForbidden("only the assigned technician may work this ticket")
		}
	default:
		return nil, apperrors.NewForbidden("role cannot work tickets")
	}
	return ticket, nil
}

// workAttribution resolves which technician a task or work log belongs to.
// Admins record against the ticket's assignee.
func workAttribution(caller auth.Caller, ticket *domain.Ticket) (string, error) {
	if caller.TechnicianID != nil {
		return *caller.TechnicianID, nil
	}
	if ticket.AssignedTechnicianID != nil {
		return *ticket.AssignedTechnicianID, nil
	}
	return "", apperrors.NewValidationError("ticket has no assigned technician", nil)
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) checkSkillsExist(ctx context.Context, skillIDs []string) error {
	if len(skillIDs) == 0 {
		return nil
	}
	found, err := s.skills.GetByIDs(ctx, skillIDs)
	if err != nil {
		return apperrors.MapError(err)
	}
	known := make(map[string]struct{}, len(found))
	for _, skill := range found {
		known[skill.ID] = struct{}{}
	}
	for _, id := range skillIDs {
		if _, ok := known[id]; !ok {
			return apperrors.NewValidationError("unknown skill", map[string]any{"skill_id": id})
		}
	}
	return nil
}

func mapUpdateErr(err error) error {
	if errors.Is(err, repository.ErrStaleTicket) {
		return apperrors.NewConflict("ticket was modified concurrently", nil)
	}
	return apperrors.MapError(err)
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
