package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/catalog"
)

// CatalogHandler exposes the configured states and priorities.
type CatalogHandler struct {
	catalog *catalog.Cache
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(cache *catalog.Cache) *CatalogHandler {
	return &CatalogHandler{catalog: cache}
}

// States handles GET /catalog/states.
func (h *CatalogHandler) States(c *fiber.Ctx) error {
	states, err := h.catalog.States(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStateResponses(states)})
}

// Priorities handles GET /catalog/priorities.
func (h *CatalogHandler) Priorities(c *fiber.Ctx) error {
	priorities, err := h.catalog.Priorities(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPriorityResponses(priorities)})
}

// Invalidate handles POST /catalog/invalidate, forcing a reload after the
// reference tables change.
func (h *CatalogHandler) Invalidate(c *fiber.Ctx) error {
	h.catalog.Invalidate(c.UserContext())
	return c.JSON(fiber.Map{"data": fiber.Map{"invalidated": true}})
}
