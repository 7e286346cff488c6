package parent

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/schoollunch/lunchwallet/internal/middleware"
	"github.com/schoollunch/lunchwallet/internal/wallet"
)

// Handler exposes parent account endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a parent handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type profileRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type parentResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	CreatedOn time.Time `json:"createdOn"`
}

func newParentResponse(p Parent) parentResponse {
	return parentResponse{
		ID:        p.ID,
		Username:  p.Username,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      p.Role,
		CreatedOn: p.CreatedOn,
	}
}

// Register onboards a parent and provisions the wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	p, w, err := h.service.Register(c.UserContext(), Registration{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"parent": newParentResponse(p),
		"wallet": wallet.NewWalletResponse(w),
	})
}

// Me returns the acting parent's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	p, err := h.service.Get(c.UserContext(), parentID)
	if err != nil {
		return err
	}
	return c.JSON(newParentResponse(p))
}

// UpdateProfile edits email and password.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.service.UpdateProfile(c.UserContext(), parentID, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(newParentResponse(p))
}

// Delete removes the acting parent's account, wallet and history.
func (h *Handler) Delete(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), parentID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
