package domain

import "time"

// Complaint is the aggregate for citizen-filed reports.
type Complaint struct {
	ID                 string
	Code               string
	CitizenID          string
	AssigneeID         *string
	DepartmentID       *string
	CategoryID         string
	DistrictID         *string
	PriorityCode       string
	StateCode          string
	Title              string
	Description        string
	Address            string
	Anonymous          bool
	RegisteredAt       time.Time
	SlaDeadline        *time.Time
	BreachNotifiedAt   *time.Time
	ApproachNotifiedAt *time.Time
	ClosedAt           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// Open reports whether the complaint has not reached a terminal state.
func (c *Complaint) Open() bool {
	return c.ClosedAt == nil
}
