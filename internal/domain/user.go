package domain

import "time"

// Role enumerates caller roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleUser       Role = "user"

	// RoleSystem attributes automated actions (AI assignment, skill
	// evaluation) in events and audit rows. No account carries it.
	RoleSystem Role = "system"
)

// IsValidRole reports whether r is a known account role.
func IsValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleTechnician || r == RoleUser
}

// User is an account that can authenticate: requesters, technicians and
// admins all have one. Technician accounts link to a Technician profile.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Department   *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
