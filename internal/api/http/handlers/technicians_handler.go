package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// TechniciansHandler exposes the technician directory and skill catalog.
type TechniciansHandler struct {
	technicians *service.TechnicianService
	assigner    *service.AssignmentService
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(technicians *service.TechnicianService, assigner *service.AssignmentService) *TechniciansHandler {
	return &TechniciansHandler{technicians: technicians, assigner: assigner}
}

// CreateTechnician POST /technicians.
func (h *TechniciansHandler) CreateTechnician(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tech, err := h.technicians.CreateTechnician(c.Context(), caller, service.TechnicianCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Skills:   toDomainSkills(req.Skills),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": technicianResponse(tech)})
}

// ListTechnicians GET /technicians.
func (h *TechniciansHandler) ListTechnicians(c *fiber.Ctx) error {
	if _, err := callerFromContext(c); err != nil {
		return err
	}
	var skillIDs []string
	if raw := c.Query("skills"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				skillIDs = append(skillIDs, trimmed)
			}
		}
	}
	activeOnly := c.Query("active") != "false"
	techs, err := h.technicians.ListTechnicians(c.Context(), skillIDs, activeOnly)
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianResponse, 0, len(techs))
	for i := range techs {
		items = append(items, technicianResponse(&techs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTechnician GET /technicians/:id.
func (h *TechniciansHandler) GetTechnician(c *fiber.Ctx) error {
	if _, err := callerFromContext(c); err != nil {
		return err
	}
	tech, err := h.technicians.GetTechnician(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicianResponse(tech)})
}

// GetWorkload GET /technicians/:id/workload.
func (h *TechniciansHandler) GetWorkload(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	if caller.Role == domain.RoleUser {
		return apperrors.NewForbidden("access denied")
	}
	technicianID := c.Params("id")
	if _, err := h.technicians.GetTechnician(c.Context(), technicianID); err != nil {
		return err
	}
	workload, err := h.assigner.ComputeWorkload(c.Context(), technicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"technician_id": technicianID,
		"workload":      workload,
	}})
}

// ReplaceSkills PUT /technicians/:id/skills.
func (h *TechniciansHandler) ReplaceSkills(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ReplaceSkillsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tech, err := h.technicians.ReplaceSkills(c.Context(), caller, c.Params("id"), toDomainSkills(req.Skills))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicianResponse(tech)})
}

// SetAvailability PUT /technicians/:id/availability.
func (h *TechniciansHandler) SetAvailability(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.SetAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tech, err := h.technicians.SetAvailability(c.Context(), caller, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": technicianResponse(tech)})
}

// CreateSkill POST /skills.
func (h *TechniciansHandler) CreateSkill(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateSkillRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	skill, err := h.technicians.CreateSkill(c.Context(), caller, req.Name, req.Category)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": skillResponse(skill)})
}

// ListSkills GET /skills.
func (h *TechniciansHandler) ListSkills(c *fiber.Ctx) error {
	if _, err := callerFromContext(c); err != nil {
		return err
	}
	skills, err := h.technicians.ListSkills(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.SkillResponse, 0, len(skills))
	for i := range skills {
		items = append(items, skillResponse(&skills[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func toDomainSkills(skills []dto.SkillAssignment) []domain.TechnicianSkill {
	out := make([]domain.TechnicianSkill, 0, len(skills))
	for _, skill := range skills {
		out = append(out, domain.TechnicianSkill{
			SkillID:     skill.SkillID,
			Proficiency: skill.Proficiency,
		})
	}
	return out
}

func technicianResponse(tech *domain.Technician) dto.TechnicianResponse {
	skills := make([]dto.SkillAssignment, 0, len(tech.Skills))
	for _, skill := range tech.Skills {
		skills = append(skills, dto.SkillAssignment{
			SkillID:     skill.SkillID,
			Proficiency: skill.Proficiency,
		})
	}
	return dto.TechnicianResponse{
		ID:                 tech.ID,
		UserID:             tech.UserID,
		Name:               tech.Name,
		Email:              tech.Email,
		Skills:             skills,
		AvailabilityStatus: tech.AvailabilityStatus,
		IsActive:           tech.IsActive,
		CreatedAt:          tech.CreatedAt,
	}
}

func skillResponse(skill *domain.Skill) dto.SkillResponse {
	return dto.SkillResponse{
		ID:       skill.ID,
		Name:     skill.Name,
		Category: skill.Category,
		IsActive: skill.IsActive,
	}
}
