package dto

import "github.com/spec-kit/complaint-service/internal/domain"

// StateResponse serializes a lifecycle state.
type StateResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsInitial   bool   `json:"is_initial"`
	IsFinal     bool   `json:"is_final"`
}

// PriorityResponse serializes a priority.
type PriorityResponse struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	SlaHours int    `json:"sla_hours"`
}

// NewStateResponses maps catalog states.
func NewStateResponses(states []domain.State) []StateResponse {
	result := make([]StateResponse, 0, len(states))
	for _, state := range states {
		result = append(result, StateResponse{
			Code:        state.Code,
			Name:        state.Name,
			Description: state.Description,
			IsInitial:   state.IsInitial,
			IsFinal:     state.IsFinal,
		})
	}
	return result
}

// NewPriorityResponses maps catalog priorities.
func NewPriorityResponses(priorities []domain.Priority) []PriorityResponse {
	result := make([]PriorityResponse, 0, len(priorities))
	for _, priority := range priorities {
		result = append(result, PriorityResponse{
			Code:     priority.Code,
			Name:     priority.Name,
			SlaHours: priority.SlaHours,
		})
	}
	return result
}
