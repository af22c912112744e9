package domain

import "time"

// StateChange is an append-only ledger entry recording one state transition.
type StateChange struct {
	ID                  string
	ComplaintID         string
	PreviousState       *string
	NewState            string
	ChangedByID         string
	Reason              string
	TimeInPreviousState time.Duration
	CreatedAt           time.Time
}

// Assignment is an append-only ledger entry recording one assignment change.
// AssignedByID is nil when the system performed the assignment.
type Assignment struct {
	ID                   string
	ComplaintID          string
	PreviousAssigneeID   *string
	NewAssigneeID        string
	PreviousDepartmentID *string
	NewDepartmentID      *string
	AssignedByID         *string
	Reason               string
	CreatedAt            time.Time
}
