package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/pkg/util"
)

// StaffComplaintsHandler exposes the staff-facing complaint surface.
type StaffComplaintsHandler struct {
	complaints  *service.ComplaintService
	assignments *service.AssignmentService
}

// NewStaffComplaintsHandler constructs handler.
func NewStaffComplaintsHandler(complaints *service.ComplaintService, assignments *service.AssignmentService) *StaffComplaintsHandler {
	return &StaffComplaintsHandler{complaints: complaints, assignments: assignments}
}

// List handles GET /staff/complaints.
func (h *StaffComplaintsHandler) List(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}

	filter := parseFilter(c)
	complaints, err := h.complaints.ListForStaff(c.UserContext(), staff.ID, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponses(complaints, true)})
}

// Get handles GET /staff/complaints/:id.
func (h *StaffComplaintsHandler) Get(c *fiber.Ctx) error {
	if _, err := requireStaff(c); err != nil {
		return err
	}

	complaint, err := h.complaints.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint, true)})
}

// Transition handles POST /staff/complaints/:id/transition.
func (h *StaffComplaintsHandler) Transition(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}

	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.ToState == "" {
		return fiber.NewError(http.StatusBadRequest, "to_state required")
	}

	complaint, err := h.complaints.Transition(c.UserContext(), staff.ID, c.Params("id"), req.ToState, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint, true)})
}

// ChangePriority handles POST /staff/complaints/:id/priority.
func (h *StaffComplaintsHandler) ChangePriority(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}

	var req dto.PriorityChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.PriorityCode == "" {
		return fiber.NewError(http.StatusBadRequest, "priority_code required")
	}

	complaint, err := h.complaints.ChangePriority(c.UserContext(), staff.ID, c.Params("id"), req.PriorityCode)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint, true)})
}

// Assign handles POST /staff/complaints/:id/assign.
func (h *StaffComplaintsHandler) Assign(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}

	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.AssigneeID == "" {
		return fiber.NewError(http.StatusBadRequest, "assignee_id required")
	}

	complaint, err := h.assignments.Assign(c.UserContext(), staff.ID, c.Params("id"), req.AssigneeID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint, true)})
}

// AutoAssign handles POST /staff/complaints/:id/auto-assign.
func (h *StaffComplaintsHandler) AutoAssign(c *fiber.Ctx) error {
	if _, err := requireStaff(c); err != nil {
		return err
	}

	complaint, err := h.assignments.AutoAssign(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint, true)})
}

// History handles GET /staff/complaints/:id/history.
func (h *StaffComplaintsHandler) History(c *fiber.Ctx) error {
	if _, err := requireStaff(c); err != nil {
		return err
	}

	entries, err := h.complaints.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStateChangeResponses(entries)})
}

// Assignments handles GET /staff/complaints/:id/assignments.
func (h *StaffComplaintsHandler) Assignments(c *fiber.Ctx) error {
	if _, err := requireStaff(c); err != nil {
		return err
	}

	entries, err := h.complaints.AssignmentHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponses(entries)})
}

// ListComments handles GET /staff/complaints/:id/comments with internal notes.
func (h *StaffComplaintsHandler) ListComments(c *fiber.Ctx) error {
	if _, err := requireStaff(c); err != nil {
		return err
	}

	comments, err := h.complaints.Comments(c.UserContext(), c.Params("id"), true)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommentResponses(comments)})
}

// AddComment handles POST /staff/complaints/:id/comments.
func (h *StaffComplaintsHandler) AddComment(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}

	var req dto.CommentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	comment, err := h.complaints.AddComment(c.UserContext(), staff.ID, domain.SubjectTypeStaff, c.Params("id"), req.Body, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// Archive handles DELETE /staff/complaints/:id.
func (h *StaffComplaintsHandler) Archive(c *fiber.Ctx) error {
	staff, err := requireStaff(c)
	if err != nil {
		return err
	}

	if err := h.complaints.Archive(c.UserContext(), staff.ID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"archived": true}})
}

func requireStaff(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, util.NewUnauthorized("staff account required")
	}
	return principal.Staff, nil
}
