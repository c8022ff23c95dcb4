package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// SkillAssignment pairs a skill with a proficiency score.
type SkillAssignment struct {
	SkillID     string `json:"skill_id"`
	Proficiency int    `json:"proficiency"`
}

// CreateTechnicianRequest onboards a technician.
type CreateTechnicianRequest struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Skills   []SkillAssignment `json:"skills"`
}

// ReplaceSkillsRequest overwrites a technician's skill set.
type ReplaceSkillsRequest struct {
	Skills []SkillAssignment `json:"skills"`
}

// SetAvailabilityRequest updates availability status.
type SetAvailabilityRequest struct {
	Status domain.AvailabilityStatus `json:"status"`
}

// CreateSkillRequest adds a catalog skill.
type CreateSkillRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// TechnicianResponse is the profile projection.
type TechnicianResponse struct {
	ID                 string                    `json:"id"`
	UserID             string                    `json:"user_id"`
	Name               string                    `json:"name"`
	Email              string                    `json:"email"`
	Skills             []SkillAssignment         `json:"skills"`
	AvailabilityStatus domain.AvailabilityStatus `json:"availability_status"`
	IsActive           bool                      `json:"is_active"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// SkillResponse is a catalog entry.
type SkillResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	IsActive bool   `json:"is_active"`
}
