package domain

import "time"

// Well-known state codes seeded by the catalog migration. Deployments may
// configure additional states; only the initial and in-progress codes are
// referenced by the assignment flow.
const (
	StateRegistered = "REGISTERED"
	StateInReview   = "IN_REVIEW"
	StateInProgress = "IN_PROGRESS"
	StatePending    = "PENDING"
	StateResolved   = "RESOLVED"
	StateRejected   = "REJECTED"
	StateArchived   = "ARCHIVED"
)

// State is a catalog row describing one lifecycle state.
type State struct {
	Code        string
	Name        string
	Description string
	IsInitial   bool
	IsFinal     bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Priority is a catalog row carrying the SLA allotment in hours.
type Priority struct {
	Code      string
	Name      string
	SlaHours  int
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransitionRule is a configured directed edge between two states. A state
// change is legal only when an active rule exists for the (from, to) pair.
type TransitionRule struct {
	ID               string
	FromState        string
	ToState          string
	Name             string
	RequiresReason   bool
	RequiresAssignee bool
	AdminOnly        bool
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
