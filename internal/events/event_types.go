package events

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated         EventType = "complaint_created"
	EventComplaintStateChanged    EventType = "complaint_state_changed"
	EventComplaintPriorityChanged EventType = "complaint_priority_changed"
	EventComplaintAssigned        EventType = "complaint_assigned"
	EventComplaintCommentAdded    EventType = "complaint_comment_added"
	EventComplaintSlaBreached     EventType = "complaint_sla_breached"
	EventComplaintSlaApproaching  EventType = "complaint_sla_approaching"
)

// Actor encapsulates actor metadata for an event. Both IDs nil means the
// system itself acted (auto assignment, SLA sweep).
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Code         string     `json:"code"`
	CitizenID    string     `json:"citizen_id"`
	DepartmentID *string    `json:"department_id,omitempty"`
	PriorityCode string     `json:"priority_code"`
	StateCode    string     `json:"state_code"`
	SlaDeadline  *time.Time `json:"sla_deadline,omitempty"`
	Title        string     `json:"title"`
}

// ComplaintStateChangedPayload payload.
type ComplaintStateChangedPayload struct {
	Code          string  `json:"code"`
	CitizenID     string  `json:"citizen_id"`
	PreviousState string  `json:"previous_state"`
	NewState      string  `json:"new_state"`
	Reason        string  `json:"reason,omitempty"`
	Closed        bool    `json:"closed"`
	AssigneeID    *string `json:"assignee_id,omitempty"`
}

// ComplaintPriorityChangedPayload payload.
type ComplaintPriorityChangedPayload struct {
	Code             string     `json:"code"`
	PreviousPriority string     `json:"previous_priority"`
	NewPriority      string     `json:"new_priority"`
	NewDeadline      *time.Time `json:"new_deadline,omitempty"`
	AssigneeID       *string    `json:"assignee_id,omitempty"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	Code               string  `json:"code"`
	NewAssigneeID      string  `json:"new_assignee_id"`
	PreviousAssigneeID *string `json:"previous_assignee_id,omitempty"`
	DepartmentID       *string `json:"department_id,omitempty"`
	Reassignment       bool    `json:"reassignment"`
	Automatic          bool    `json:"automatic"`
}

// ComplaintCommentAddedPayload payload.
type ComplaintCommentAddedPayload struct {
	Code       string             `json:"code"`
	CommentID  string             `json:"comment_id"`
	AuthorID   string             `json:"author_id"`
	AuthorType domain.SubjectType `json:"author_type"`
	Internal   bool               `json:"internal"`
	CitizenID  string             `json:"citizen_id"`
	AssigneeID *string            `json:"assignee_id,omitempty"`
}

// ComplaintSlaPayload is shared by breach and approaching events.
type ComplaintSlaPayload struct {
	Code         string     `json:"code"`
	AssigneeID   *string    `json:"assignee_id,omitempty"`
	DepartmentID *string    `json:"department_id,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}
