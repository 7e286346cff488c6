package children

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/schoollunch/lunchwallet/internal/middleware"
)

// Handler exposes child endpoints for the acting parent.
type Handler struct {
	service *Service
}

// NewHandler constructs a child HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type childRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	School    string `json:"school"`
	Grade     int    `json:"grade"`
	Gender    string `json:"gender"`
}

type editChildRequest struct {
	School string `json:"school"`
	Grade  int    `json:"grade"`
}

// List returns the parent's children.
func (h *Handler) List(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	kids, err := h.service.ListByParent(c.UserContext(), parentID)
	if err != nil {
		return err
	}
	return c.JSON(kids)
}

// Create registers a child.
func (h *Handler) Create(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	var req childRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	child, err := h.service.Register(c.UserContext(), parentID, Details{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		School:    req.School,
		Grade:     req.Grade,
		Gender:    req.Gender,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(child)
}

// Update edits school and grade.
func (h *Handler) Update(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	var req editChildRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	child, err := h.service.Update(c.UserContext(), parentID, c.Params("childId"), req.School, req.Grade)
	if err != nil {
		return err
	}
	return c.JSON(child)
}

// Delete removes a child and reports the refunded amount.
func (h *Handler) Delete(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	childID := c.Params("childId")
	refund, err := h.service.Delete(c.UserContext(), parentID, childID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"childId": childID, "refunded": refund.StringFixed(2)})
}
