package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/schoollunch/lunchwallet/internal/children"
	"github.com/schoollunch/lunchwallet/internal/orders"
)

// RegisterChildrenRoutes wires child records and their lunch orders.
func RegisterChildrenRoutes(r fiber.Router, kids *children.Handler, lunches *orders.Handler, idem fiber.Handler) {
	r.Get("/children", kids.List)
	r.Post("/children", kids.Create)
	r.Put("/children/:childId", kids.Update)
	r.Delete("/children/:childId", guarded(idem, kids.Delete)...)

	r.Get("/children/:childId/lunches", lunches.List)
	r.Post("/children/:childId/lunches", guarded(idem, lunches.Place)...)
	r.Delete("/children/:childId/lunches/:orderId", guarded(idem, lunches.Delete)...)
}
