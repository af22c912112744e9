package domain

import "time"

// Department represents a municipal area that owns and staffs complaints.
type Department struct {
	ID          string
	Code        string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category classifies complaints and routes them to a default department.
type Category struct {
	ID                  string
	Name                string
	Description         string
	DefaultDepartmentID *string
	SortOrder           int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
