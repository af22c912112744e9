package domain

import "time"

// Comment captures a message attached to a complaint thread. Internal
// comments are visible to staff only and never notify the citizen.
type Comment struct {
	ID          string
	ComplaintID string
	AuthorID    string
	AuthorType  SubjectType
	Body        string
	Internal    bool
	CreatedAt   time.Time
}
