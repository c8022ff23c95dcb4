package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

func newTechnicianService(techs *fakeTechnicianRepo, skills *fakeSkillRepo) *TechnicianService {
	if skills == nil {
		skills = newFakeSkillRepo()
	}
	return NewTechnicianService(TechnicianDependencies{
		TechnicianRepo: techs,
		SkillRepo:      skills,
		Accounts:       newAuthService(newFakeUserRepo()),
	})
}

func TestCreateTechnician(t *testing.T) {
	techs := newFakeTechnicianRepo()
	skills := newFakeSkillRepo(domain.Skill{ID: "net", Name: "Networking", IsActive: true})
	svc := newTechnicianService(techs, skills)

	tech, err := svc.CreateTechnician(context.Background(), adminCaller(), TechnicianCreateInput{
		Name:     "Sam",
		Email:    "sam@example.com",
		Password: "hunter2hunter2",
		Skills:   []domain.TechnicianSkill{{SkillID: "net", Proficiency: 70}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tech.ID)
	assert.NotEmpty(t, tech.UserID)
	assert.Equal(t, domain.AvailabilityAvailable, tech.AvailabilityStatus)
	assert.True(t, tech.IsActive)
	require.Len(t, tech.Skills, 1)
}

func TestCreateTechnicianAdminOnly(t *testing.T) {
	svc := newTechnicianService(newFakeTechnicianRepo(), nil)

	_, err := svc.CreateTechnician(context.Background(), technicianCaller("tech-1"), TechnicianCreateInput{
		Name: "Sam", Email: "sam@example.com", Password: "hunter2hunter2",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestCreateTechnicianRejectsBadSkills(t *testing.T) {
	skills := newFakeSkillRepo(domain.Skill{ID: "net", Name: "Networking", IsActive: true})
	svc := newTechnicianService(newFakeTechnicianRepo(), skills)

	_, err := svc.CreateTechnician(context.Background(), adminCaller(), TechnicianCreateInput{
		Name: "Sam", Email: "sam@example.com", Password: "hunter2hunter2",
		Skills: []domain.TechnicianSkill{{SkillID: "net", Proficiency: 130}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = svc.CreateTechnician(context.Background(), adminCaller(), TechnicianCreateInput{
		Name: "Sam", Email: "sam2@example.com", Password: "hunter2hunter2",
		Skills: []domain.TechnicianSkill{{SkillID: "quantum", Proficiency: 50}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestReplaceSkills(t *testing.T) {
	techs := newFakeTechnicianRepo(activeTechnician("tech-1"))
	skills := newFakeSkillRepo(domain.Skill{ID: "db", Name: "Databases", IsActive: true})
	svc := newTechnicianService(techs, skills)

	tech, err := svc.ReplaceSkills(context.Background(), adminCaller(), "tech-1",
		[]domain.TechnicianSkill{{SkillID: "db", Proficiency: 40}})
	require.NoError(t, err)
	require.Len(t, tech.Skills, 1)
	assert.Equal(t, "db", tech.Skills[0].SkillID)

	_, err = svc.ReplaceSkills(context.Background(), technicianCaller("tech-1"), "tech-1", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = svc.ReplaceSkills(context.Background(), adminCaller(), "ghost", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestSetAvailability(t *testing.T) {
	techs := newFakeTechnicianRepo(activeTechnician("tech-1"), activeTechnician("tech-2"))
	svc := newTechnicianService(techs, nil)

	tech, err := svc.SetAvailability(context.Background(), technicianCaller("tech-1"), "tech-1", domain.AvailabilityFocusMode)
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityFocusMode, tech.AvailabilityStatus)

	// Technicians cannot change anyone else's status; admins can.
	_, err = svc.SetAvailability(context.Background(), technicianCaller("tech-1"), "tech-2", domain.AvailabilityBusy)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = svc.SetAvailability(context.Background(), adminCaller(), "tech-2", domain.AvailabilityOnBreak)
	require.NoError(t, err)

	_, err = svc.SetAvailability(context.Background(), adminCaller(), "tech-2", domain.AvailabilityStatus("napping"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestSkillCatalog(t *testing.T) {
	skills := newFakeSkillRepo()
	svc := newTechnicianService(newFakeTechnicianRepo(), skills)

	skill, err := svc.CreateSkill(context.Background(), adminCaller(), "Networking", "infrastructure")
	require.NoError(t, err)
	assert.NotEmpty(t, skill.ID)
	assert.True(t, skill.IsActive)

	_, err = svc.CreateSkill(context.Background(), technicianCaller("tech-1"), "Databases", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = svc.CreateSkill(context.Background(), adminCaller(), "  ", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	catalog, err := svc.ListSkills(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Networking", catalog[0].Name)
}
