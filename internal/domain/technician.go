package domain

import "time"

// AvailabilityStatus enumerates a technician's presence states.
type AvailabilityStatus string

const (
	AvailabilityAvailable  AvailabilityStatus = "available"
	AvailabilityBusy       AvailabilityStatus = "busy"
	AvailabilityInMeeting  AvailabilityStatus = "in_meeting"
	AvailabilityOnBreak    AvailabilityStatus = "on_break"
	AvailabilityFocusMode  AvailabilityStatus = "focus_mode"
	AvailabilityEndOfShift AvailabilityStatus = "end_of_shift"
)

// IsValidAvailability reports whether a is a known availability state.
func IsValidAvailability(a AvailabilityStatus) bool {
	switch a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityInMeeting,
		AvailabilityOnBreak, AvailabilityFocusMode, AvailabilityEndOfShift:
		return true
	}
	return false
}

// TechnicianSkill binds a skill to a technician with a 0-100 proficiency.
type TechnicianSkill struct {
	SkillID     string
	Proficiency int
}

// Technician models a support worker with a skill profile. Workload is never
// stored on this struct; it is derived from the active-ticket set at read
// time.
type Technician struct {
	ID                 string
	UserID             string
	Name               string
	Email              string
	Skills             []TechnicianSkill
	AvailabilityStatus AvailabilityStatus
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SkillProficiency returns the technician's proficiency for skillID and
// whether the skill is held at all.
func (t *Technician) SkillProficiency(skillID string) (int, bool) {
	for _, ts := range t.Skills {
		if ts.SkillID == skillID {
			return ts.Proficiency, true
		}
	}
	return 0, false
}
