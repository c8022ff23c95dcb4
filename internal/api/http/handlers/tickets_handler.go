package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// TicketsHandler exposes the ticket surface: creation, field updates,
// lifecycle transitions, assignment and the audit trail.
type TicketsHandler struct {
	tickets   *service.TicketService
	lifecycle *service.LifecycleService
	assigner  *service.AssignmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, lifecycle *service.LifecycleService, assigner *service.AssignmentService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, lifecycle: lifecycle, assigner: assigner}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.CreateTicket(c.Context(), caller, service.TicketCreateInput{
		Subject:          req.Subject,
		Description:      req.Description,
		Priority:         req.Priority,
		Impact:           req.Impact,
		Urgency:          req.Urgency,
		RequiredSkillIDs: req.RequiredSkillIDs,
		Tags:             req.Tags,
		ResolutionDue:    req.ResolutionDue,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.Context(), caller, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.Context(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, changed, err := h.tickets.UpdateTicket(c.Context(), caller, c.Params("id"), service.TicketUpdateInput{
		Subject:          req.Subject,
		Description:      req.Description,
		Priority:         req.Priority,
		Impact:           req.Impact,
		Urgency:          req.Urgency,
		RequiredSkillIDs: req.RequiredSkillIDs,
		Tags:             req.Tags,
		SLAViolated:      req.SLAViolated,
		ResolutionDue:    req.ResolutionDue,
		EscalationCount:  req.EscalationCount,
	})
	if err != nil {
		return err
	}
	if !changed {
		return c.JSON(fiber.Map{"data": ticketDetail(ticket), "message": "No changes detected"})
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.ChangeStatus(c.Context(), caller, c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.CloseTicket(c.Context(), caller, c.Params("id"), req.Feedback, req.SatisfactionRating)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ReopenTicket POST /tickets/:id/reopen.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ReopenTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.ReopenTicket(c.Context(), caller, c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// CancelTicket POST /tickets/:id/cancel.
func (h *TicketsHandler) CancelTicket(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CancelTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.CancelTicket(c.Context(), caller, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AssignTechnician POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTechnician(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TechnicianID) == "" {
		return apperrors.NewValidationError("technician_id required", nil)
	}
	ticket, alreadyAssigned, err := h.assigner.Assign(c.Context(), caller, c.Params("id"), req.TechnicianID, req.Justification)
	if err != nil {
		return err
	}
	if alreadyAssigned {
		return c.JSON(fiber.Map{"data": ticketDetail(ticket), "message": "already assigned"})
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// RemoveTechnician DELETE /tickets/:id/assign.
func (h *TicketsHandler) RemoveTechnician(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	ticket, err := h.assigner.Remove(c.Context(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListAudit GET /tickets/:id/audit.
func (h *TicketsHandler) ListAudit(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	newestFirst := c.Query("order") == "desc"
	entries, err := h.tickets.ListAuditTrail(c.Context(), caller, c.Params("id"), newestFirst)
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, auditResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddTask POST /tickets/:id/tasks.
func (h *TicketsHandler) AddTask(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AddTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.tickets.AddTask(c.Context(), caller, c.Params("id"), req.Title)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": taskResponse(task)})
}

// AddWorkLog POST /tickets/:id/worklogs.
func (h *TicketsHandler) AddWorkLog(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AddWorkLogRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	log, err := h.tickets.AddWorkLog(c.Context(), caller, c.Params("id"), req.Summary, req.Minutes)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": workLogResponse(log)})
}

// ListCandidates GET /tickets/candidates?skills=a,b.
func (h *TicketsHandler) ListCandidates(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	if caller.Role == domain.RoleUser {
		return apperrors.NewForbidden("access denied")
	}
	var skillIDs []string
	if raw := c.Query("skills"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				skillIDs = append(skillIDs, trimmed)
			}
		}
	}
	candidates, err := h.assigner.ListCandidatesBySkills(c.Context(), skillIDs)
	if err != nil {
		return err
	}
	items := make([]dto.CandidateResponse, 0, len(candidates))
	for _, cand := range candidates {
		items = append(items, dto.CandidateResponse{
			TechnicianID: cand.Technician.ID,
			Name:         cand.Technician.Name,
			Workload:     cand.Workload,
			Proficiency:  cand.Proficiency,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func callerFromContext(c *fiber.Ctx) (auth.Caller, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return auth.Caller{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Caller, nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListInput {
	input := service.TicketListInput{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			input.Statuses = append(input.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			input.Priorities = append(input.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if technicianID := c.Query("technician_id"); technicianID != "" {
		input.TechnicianID = &technicianID
	}
	if slaStr := c.Query("sla_violated"); slaStr != "" {
		violated := slaStr == "true"
		input.SLAViolated = &violated
	}
	if term := c.Query("q"); term != "" {
		input.SearchTerm = &term
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		input.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		input.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	input.Offset = (page - 1) * pageSize
	input.Limit = pageSize
	return input
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                   ticket.ID,
		ExternalKey:          ticket.ExternalKey,
		Subject:              ticket.Subject,
		Status:               ticket.Status,
		Priority:             ticket.Priority,
		Impact:               ticket.Impact,
		Urgency:              ticket.Urgency,
		AssignedTechnicianID: ticket.AssignedTechnicianID,
		Tags:                 ticket.Tags,
		SLAViolated:          ticket.SLAViolated,
		CreatedAt:            ticket.CreatedAt,
		UpdatedAt:            ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	trail := make([]dto.AuditEntryResponse, 0, len(ticket.AuditTrail))
	for i := range ticket.AuditTrail {
		trail = append(trail, auditResponse(&ticket.AuditTrail[i]))
	}
	tasks := make([]dto.TaskResponse, 0, len(ticket.Tasks))
	for i := range ticket.Tasks {
		tasks = append(tasks, taskResponse(&ticket.Tasks[i]))
	}
	logs := make([]dto.WorkLogResponse, 0, len(ticket.WorkLogs))
	for i := range ticket.WorkLogs {
		logs = append(logs, workLogResponse(&ticket.WorkLogs[i]))
	}
	return dto.TicketDetailResponse{
		ID:                   ticket.ID,
		ExternalKey:          ticket.ExternalKey,
		RequesterID:          ticket.RequesterID,
		AssignedTechnicianID: ticket.AssignedTechnicianID,
		Subject:              ticket.Subject,
		Description:          ticket.Description,
		Status:               ticket.Status,
		Priority:             ticket.Priority,
		Impact:               ticket.Impact,
		Urgency:              ticket.Urgency,
		RequiredSkillIDs:     ticket.RequiredSkillIDs,
		Tags:                 ticket.Tags,
		SLAViolated:          ticket.SLAViolated,
		ResolutionDue:        ticket.ResolutionDue,
		EscalationCount:      ticket.EscalationCount,
		ReopenedCount:        ticket.ReopenedCount,
		SatisfactionRating:   ticket.SatisfactionRating,
		Feedback:             ticket.Feedback,
		Justification:        ticket.Justification,
		ResolvedAt:           ticket.ResolvedAt,
		ClosedAt:             ticket.ClosedAt,
		CreatedAt:            ticket.CreatedAt,
		UpdatedAt:            ticket.UpdatedAt,
		AuditTrail:           trail,
		Tasks:                tasks,
		WorkLogs:             logs,
	}
}

func auditResponse(entry *domain.AuditEntry) dto.AuditEntryResponse {
	return dto.AuditEntryResponse{
		ID:          entry.ID,
		Action:      entry.Action,
		OldValue:    entry.OldValue,
		NewValue:    entry.NewValue,
		Comment:     entry.Comment,
		PerformedBy: entry.PerformedBy,
		Timestamp:   entry.Timestamp,
	}
}

func taskResponse(task *domain.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:           task.ID,
		TechnicianID: task.TechnicianID,
		Title:        task.Title,
		Status:       task.Status,
		CreatedAt:    task.CreatedAt,
	}
}

func workLogResponse(log *domain.WorkLog) dto.WorkLogResponse {
	return dto.WorkLogResponse{
		ID:           log.ID,
		TechnicianID: log.TechnicianID,
		Summary:      log.Summary,
		Minutes:      log.Minutes,
		CreatedAt:    log.CreatedAt,
	}
}
