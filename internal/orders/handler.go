package orders

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/schoollunch/lunchwallet/internal/lunch"
	"github.com/schoollunch/lunchwallet/internal/middleware"
	"github.com/schoollunch/lunchwallet/internal/wallet"
)

// Handler exposes lunch order endpoints under a child.
type Handler struct {
	service *Service
}

// NewHandler constructs an order handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type placeRequest struct {
	Meal      string `json:"meal"`
	Quantity  int    `json:"quantity"`
	DayOfWeek string `json:"dayOfWeek"`
}

type orderResponse struct {
	ID        string    `json:"id"`
	ChildID   string    `json:"childId"`
	Meal      string    `json:"meal"`
	MealName  string    `json:"mealName"`
	Quantity  int       `json:"quantity"`
	DayOfWeek string    `json:"dayOfWeek"`
	UnitPrice string    `json:"unitPrice"`
	Total     string    `json:"total"`
	Status    string    `json:"status"`
	CreatedOn time.Time `json:"createdOn"`
}

func newOrderResponse(o lunch.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		ChildID:   o.ChildID,
		Meal:      o.Meal,
		MealName:  lunch.Meals[o.Meal],
		Quantity:  o.Quantity,
		DayOfWeek: o.DayOfWeek,
		UnitPrice: o.UnitPrice.StringFixed(2),
		Total:     o.Total.StringFixed(2),
		Status:    string(o.Status),
		CreatedOn: o.CreatedOn,
	}
}

// List returns the child's active orders.
func (h *Handler) List(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	list, err := h.service.ListOrders(c.UserContext(), parentID, c.Params("childId"))
	if err != nil {
		return err
	}
	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, newOrderResponse(o))
	}
	return c.JSON(out)
}

// Place orders and pays for a lunch.
func (h *Handler) Place(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	var req placeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	placed, err := h.service.PlaceOrder(c.UserContext(), PlaceInput{
		ParentID:  parentID,
		ChildID:   c.Params("childId"),
		Meal:      req.Meal,
		Quantity:  req.Quantity,
		DayOfWeek: req.DayOfWeek,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"order":   newOrderResponse(placed.Order),
		"payment": wallet.NewTransactionResponse(placed.Payment),
	})
}

// Delete cancels an order, refunding it when it was paid.
func (h *Handler) Delete(c *fiber.Ctx) error {
	parentID, err := middleware.RequireParent(c)
	if err != nil {
		return err
	}
	refund, err := h.service.DeleteOrder(c.UserContext(), parentID, c.Params("childId"), c.Params("orderId"))
	if err != nil {
		return err
	}
	if refund == nil {
		return c.JSON(fiber.Map{"orderId": c.Params("orderId"), "refund": nil})
	}
	return c.JSON(fiber.Map{"orderId": c.Params("orderId"), "refund": wallet.NewTransactionResponse(*refund)})
}
