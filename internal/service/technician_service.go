package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// TechnicianService manages the technician directory backing the assignment
// engine.
type TechnicianService struct {
	technicians repository.TechnicianRepository
	skills      repository.SkillRepository
	accounts    *AuthService
}

// TechnicianDependencies bundles collaborators.
type TechnicianDependencies struct {
	TechnicianRepo repository.TechnicianRepository
	SkillRepo      repository.SkillRepository
	Accounts       *AuthService
}

// TechnicianCreateInput describes technician onboarding payload.
type TechnicianCreateInput struct {
	Name     string
	Email    string
	Password string
	Skills   []domain.TechnicianSkill
}

// NewTechnicianService constructs the service.
func NewTechnicianService(deps TechnicianDependencies) *TechnicianService {
	return &TechnicianService{
		technicians: deps.TechnicianRepo,
		skills:      deps.SkillRepo,
		accounts:    deps.Accounts,
	}
}

// CreateTechnician onboards a technician: account plus profile. Admin only.
func (s *TechnicianService) CreateTechnician(ctx context.Context, caller auth.Caller, input TechnicianCreateInput) (*domain.Technician, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("role cannot onboard technicians")
	}
	if err := s.validateSkills(ctx, input.Skills); err != nil {
		return nil, err
	}

	user, err := s.accounts.CreateAccount(ctx, input.Name, input.Email, input.Password, domain.RoleTechnician)
	if err != nil {
		return nil, err
	}
	tech := &domain.Technician{
		UserID:             user.ID,
		Name:               user.Name,
		Email:              user.Email,
		Skills:             input.Skills,
		AvailabilityStatus: domain.AvailabilityAvailable,
		IsActive:           true,
	}
	if err := s.technicians.Create(ctx, tech); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tech, nil
}

// GetTechnician fetches one profile.
func (s *TechnicianService) GetTechnician(ctx context.Context, technicianID string) (*domain.Technician, error) {
	tech, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return nil, apperrors.MapError(err)
	}
	return tech, nil
}

// ListTechnicians returns profiles, optionally narrowed by skills.
func (s *TechnicianService) ListTechnicians(ctx context.Context, skillIDs []string, activeOnly bool) ([]domain.Technician, error) {
	techs, err := s.technicians.List(ctx, repository.TechnicianFilter{
		ActiveOnly: activeOnly,
		SkillIDs:   skillIDs,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return techs, nil
}

// ReplaceSkills overwrites a technician's skill set. Admin only.
func (s *TechnicianService) ReplaceSkills(ctx context.Context, caller auth.Caller, technicianID string, skills []domain.TechnicianSkill) (*domain.Technician, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("role cannot edit technician skills")
	}
	if err := s.validateSkills(ctx, skills); err != nil {
		return nil, err
	}
	if _, err := s.GetTechnician(ctx, technicianID); err != nil {
		return nil, err
	}
	if err := s.technicians.ReplaceSkills(ctx, technicianID, skills); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.GetTechnician(ctx, technicianID)
}

// SetAvailability updates the technician's own availability status; admins
// may set anyone's.
func (s *TechnicianService) SetAvailability(ctx context.Context, caller auth.Caller, technicianID string, status domain.AvailabilityStatus) (*domain.Technician, error) {
	if !domain.IsValidAvailability(status) {
		return nil, apperrors.NewValidationError("unknown availability status", map[string]any{"status": status})
	}
	if caller.Role != domain.RoleAdmin {
		if caller.TechnicianID == nil || *caller.TechnicianID != technicianID {
			return nil, apperrors.NewForbidden("technicians may only change their own availability")
		}
	}
	tech, err := s.GetTechnician(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if err := s.technicians.UpdateAvailability(ctx, technicianID, status); err != nil {
		return nil, apperrors.MapError(err)
	}
	tech.AvailabilityStatus = status
	return tech, nil
}

// CreateSkill adds a catalog skill. Admin only.
func (s *TechnicianService) CreateSkill(ctx context.Context, caller auth.Caller, name, category string) (*domain.Skill, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("role cannot manage the skill catalog")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("skill name is required", nil)
	}
	skill := &domain.Skill{
		Name:     name,
		Category: strings.TrimSpace(category),
		IsActive: true,
	}
	if err := s.skills.Create(ctx, skill); err != nil {
		return nil, apperrors.MapError(err)
	}
	return skill, nil
}

// ListSkills returns the active skill catalog.
func (s *TechnicianService) ListSkills(ctx context.Context) ([]domain.Skill, error) {
	skills, err := s.skills.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return skills, nil
}

func (s *TechnicianService) validateSkills(ctx context.Context, skills []domain.TechnicianSkill) error {
	if len(skills) == 0 {
		return nil
	}
	ids := make([]string, 0, len(skills))
	for _, skill := range skills {
		if skill.Proficiency < 0 || skill.Proficiency > 100 {
			return apperrors.NewValidationError("proficiency must be between 0 and 100",
				map[string]any{"skill_id": skill.SkillID})
		}
		ids = append(ids, skill.SkillID)
	}
	found, err := s.skills.GetByIDs(ctx, ids)
	if err != nil {
		return apperrors.MapError(err)
	}
	known := make(map[string]struct{}, len(found))
	for _, skill := range found {
		known[skill.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[strings.TrimSpace(id)]; !ok {
			return apperrors.NewValidationError("unknown skill", map[string]any{"skill_id": id})
		}
	}
	return nil
}
