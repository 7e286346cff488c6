package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/schoollunch/lunchwallet/internal/auth"
	"github.com/schoollunch/lunchwallet/internal/parent"
)

// RegisterAuthRoutes wires the public account endpoints.
func RegisterAuthRoutes(r fiber.Router, parents *parent.Handler, h *auth.Handler, rateLimiter, jwt fiber.Handler) {
	r.Post("/parents/register", parents.Register)

	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/logout", jwt, h.Logout)
}

// RegisterParentRoutes wires the acting parent's profile endpoints.
func RegisterParentRoutes(r fiber.Router, h *parent.Handler) {
	r.Get("/parents/me", h.Me)
	r.Put("/parents/me", h.UpdateProfile)
	r.Delete("/parents/me", h.Delete)
}
