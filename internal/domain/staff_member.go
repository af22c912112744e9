package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleHandler    StaffRole = "HANDLER"
	StaffRoleSupervisor StaffRole = "SUPERVISOR"
	StaffRoleAdmin      StaffRole = "ADMIN"
)

// StaffMember models a municipal staff member who handles complaints.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	DepartmentID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the staff member holds the admin capability.
func (s *StaffMember) IsAdmin() bool {
	return s != nil && s.Role == StaffRoleAdmin
}

// CanHandle reports whether the staff member may own complaints.
func (s *StaffMember) CanHandle() bool {
	return s != nil && s.Active && (s.Role == StaffRoleHandler || s.Role == StaffRoleSupervisor || s.Role == StaffRoleAdmin)
}
