package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// ComplaintCreateRequest payload for registering a complaint.
type ComplaintCreateRequest struct {
	CategoryID   string  `json:"category_id"`
	PriorityCode string  `json:"priority_code,omitempty"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Address      string  `json:"address,omitempty"`
	DistrictID   *string `json:"district_id,omitempty"`
	Anonymous    bool    `json:"anonymous,omitempty"`
}

// TransitionRequest payload for a state change.
type TransitionRequest struct {
	ToState string `json:"to_state"`
	Reason  string `json:"reason,omitempty"`
}

// PriorityChangeRequest payload for a priority change.
type PriorityChangeRequest struct {
	PriorityCode string `json:"priority_code"`
}

// AssignRequest payload for a manual assignment.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
	Reason     string `json:"reason,omitempty"`
}

// CommentCreateRequest payload for a thread comment.
type CommentCreateRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal,omitempty"`
}

// ComplaintResponse serializes a complaint.
type ComplaintResponse struct {
	ID                 string     `json:"id"`
	Code               string     `json:"code"`
	CitizenID          string     `json:"citizen_id,omitempty"`
	AssigneeID         *string    `json:"assignee_id,omitempty"`
	DepartmentID       *string    `json:"department_id,omitempty"`
	CategoryID         string     `json:"category_id"`
	DistrictID         *string    `json:"district_id,omitempty"`
	PriorityCode       string     `json:"priority_code"`
	StateCode          string     `json:"state_code"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Address            string     `json:"address,omitempty"`
	Anonymous          bool       `json:"anonymous"`
	RegisteredAt       time.Time  `json:"registered_at"`
	SlaDeadline        *time.Time `json:"sla_deadline,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewComplaintResponse maps a complaint. Anonymous complaints hide the
// citizen identifier from staff-facing responses.
func NewComplaintResponse(complaint *domain.Complaint, hideCitizen bool) ComplaintResponse {
	resp := ComplaintResponse{
		ID:           complaint.ID,
		Code:         complaint.Code,
		CitizenID:    complaint.CitizenID,
		AssigneeID:   complaint.AssigneeID,
		DepartmentID: complaint.DepartmentID,
		CategoryID:   complaint.CategoryID,
		DistrictID:   complaint.DistrictID,
		PriorityCode: complaint.PriorityCode,
		StateCode:    complaint.StateCode,
		Title:        complaint.Title,
		Description:  complaint.Description,
		Address:      complaint.Address,
		Anonymous:    complaint.Anonymous,
		RegisteredAt: complaint.RegisteredAt,
		SlaDeadline:  complaint.SlaDeadline,
		ClosedAt:     complaint.ClosedAt,
		CreatedAt:    complaint.CreatedAt,
		UpdatedAt:    complaint.UpdatedAt,
	}
	if hideCitizen && complaint.Anonymous {
		resp.CitizenID = ""
	}
	return resp
}

// NewComplaintResponses maps a slice.
func NewComplaintResponses(complaints []domain.Complaint, hideCitizen bool) []ComplaintResponse {
	result := make([]ComplaintResponse, 0, len(complaints))
	for i := range complaints {
		result = append(result, NewComplaintResponse(&complaints[i], hideCitizen))
	}
	return result
}

// StateChangeResponse serializes a ledger entry.
type StateChangeResponse struct {
	ID                  string    `json:"id"`
	PreviousState       *string   `json:"previous_state,omitempty"`
	NewState            string    `json:"new_state"`
	ChangedByID         string    `json:"changed_by_id"`
	Reason              string    `json:"reason,omitempty"`
	TimeInPreviousState string    `json:"time_in_previous_state"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewStateChangeResponses maps the state ledger.
func NewStateChangeResponses(entries []domain.StateChange) []StateChangeResponse {
	result := make([]StateChangeResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, StateChangeResponse{
			ID:                  entry.ID,
			PreviousState:       entry.PreviousState,
			NewState:            entry.NewState,
			ChangedByID:         entry.ChangedByID,
			Reason:              entry.Reason,
			TimeInPreviousState: entry.TimeInPreviousState.String(),
			CreatedAt:           entry.CreatedAt,
		})
	}
	return result
}

// AssignmentResponse serializes an assignment ledger entry.
type AssignmentResponse struct {
	ID                 string    `json:"id"`
	PreviousAssigneeID *string   `json:"previous_assignee_id,omitempty"`
	NewAssigneeID      string    `json:"new_assignee_id"`
	AssignedByID       *string   `json:"assigned_by_id,omitempty"`
	Reason             string    `json:"reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewAssignmentResponses maps the assignment ledger.
func NewAssignmentResponses(entries []domain.Assignment) []AssignmentResponse {
	result := make([]AssignmentResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, AssignmentResponse{
			ID:                 entry.ID,
			PreviousAssigneeID: entry.PreviousAssigneeID,
			NewAssigneeID:      entry.NewAssigneeID,
			AssignedByID:       entry.AssignedByID,
			Reason:             entry.Reason,
			CreatedAt:          entry.CreatedAt,
		})
	}
	return result
}

// CommentResponse serializes a thread comment.
type CommentResponse struct {
	ID          string             `json:"id"`
	ComplaintID string             `json:"complaint_id"`
	AuthorID    string             `json:"author_id"`
	AuthorType  domain.SubjectType `json:"author_type"`
	Body        string             `json:"body"`
	Internal    bool               `json:"internal"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewCommentResponse maps one comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:          comment.ID,
		ComplaintID: comment.ComplaintID,
		AuthorID:    comment.AuthorID,
		AuthorType:  comment.AuthorType,
		Body:        comment.Body,
		Internal:    comment.Internal,
		CreatedAt:   comment.CreatedAt,
	}
}

// NewCommentResponses maps a slice.
func NewCommentResponses(comments []domain.Comment) []CommentResponse {
	result := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		result = append(result, NewCommentResponse(&comments[i]))
	}
	return result
}

// ParseComplaintFilter reads listing query parameters into a filter.
func ParseComplaintFilter(get func(key string, def ...string) string, limit, offset int) repository.ComplaintFilter {
	filter := repository.ComplaintFilter{Limit: limit, Offset: offset}

	if states := get("states"); states != "" {
		filter.States = splitCSV(states)
	}
	if priorities := get("priorities"); priorities != "" {
		filter.Priorities = splitCSV(priorities)
	}
	if dept := get("department_id"); dept != "" {
		filter.DepartmentID = &dept
	}
	if assignee := get("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if district := get("district_id"); district != "" {
		filter.DistrictID = &district
	}
	if search := get("search"); search != "" {
		filter.SearchTerm = &search
	}
	if get("unassigned") == "true" {
		filter.Unassigned = true
	}
	if from := get("registered_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.RegisteredFrom = &t
		}
	}
	if to := get("registered_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.RegisteredTo = &t
		}
	}
	return filter
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
