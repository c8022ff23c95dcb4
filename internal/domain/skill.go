package domain

import "time"

// Skill is a named capability tickets can require and technicians can hold.
type Skill struct {
	ID        string
	Name      string
	Category  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
