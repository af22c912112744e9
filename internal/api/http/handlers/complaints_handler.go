package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/pkg/util"
)

// ComplaintsHandler exposes the citizen-facing complaint surface.
type ComplaintsHandler struct {
	complaints *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaints *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{complaints: complaints}
}

// Create handles POST /complaints.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("citizen account required")
	}

	var req dto.ComplaintCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CategoryID == "" {
		return fiber.NewError(http.StatusBadRequest, "category_id required")
	}

	complaint, err := h.complaints.CreateComplaint(c.UserContext(), principal.User.ID, service.ComplaintCreateInput{
		CategoryID:   req.CategoryID,
		PriorityCode: req.PriorityCode,
		Title:        req.Title,
		Description:  req.Description,
		Address:      req.Address,
		DistrictID:   req.DistrictID,
		Anonymous:    req.Anonymous,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.NewComplaintResponse(complaint, false),
	})
}

// List handles GET /complaints: the citizen's own complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("citizen account required")
	}

	filter := parseFilter(c)
	complaints, err := h.complaints.ListForCitizen(c.UserContext(), principal.User.ID, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponses(complaints, false)})
}

// Get handles GET /complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("citizen account required")
	}

	complaint, err := h.complaints.GetForCitizen(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint, false)})
}

// Track handles GET /track/:code, the public tracking endpoint. It returns
// only state-level progress, never personal data.
func (h *ComplaintsHandler) Track(c *fiber.Ctx) error {
	complaint, err := h.complaints.GetByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"code":          complaint.Code,
		"state_code":    complaint.StateCode,
		"priority_code": complaint.PriorityCode,
		"registered_at": complaint.RegisteredAt,
		"closed_at":     complaint.ClosedAt,
	}})
}

// History handles GET /complaints/:id/history.
func (h *ComplaintsHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("citizen account required")
	}

	if _, err := h.complaints.GetForCitizen(c.UserContext(), principal.User.ID, c.Params("id")); err != nil {
		return err
	}
	entries, err := h.complaints.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStateChangeResponses(entries)})
}

// ListComments handles GET /complaints/:id/comments. Internal notes are
// excluded for citizens.
func (h *ComplaintsHandler) ListComments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("citizen account required")
	}

	if _, err := h.complaints.GetForCitizen(c.UserContext(), principal.User.ID, c.Params("id")); err != nil {
		return err
	}
	comments, err := h.complaints.Comments(c.UserContext(), c.Params("id"), false)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommentResponses(comments)})
}

// AddComment handles POST /complaints/:id/comments.
func (h *ComplaintsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("citizen account required")
	}

	var req dto.CommentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	comment, err := h.complaints.AddComment(c.UserContext(), principal.User.ID, domain.SubjectTypeUser, c.Params("id"), req.Body, false)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

func parseFilter(c *fiber.Ctx) repository.ComplaintFilter {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	return dto.ParseComplaintFilter(c.Query, limit, offset)
}
