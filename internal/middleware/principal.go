package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const (
	localParentID = "parent_id"
	localRole     = "role"
)

// Principal is the verified identity behind a request.
type Principal struct {
	ParentID string
	Role     string
	Version  int
}

// ParentID returns the acting parent for an authenticated request, or an
// empty string when the request did not pass through JWTAuth.
func ParentID(c *fiber.Ctx) string {
	id, _ := c.Locals(localParentID).(string)
	return id
}

// Role returns the role claim of the authenticated request.
func Role(c *fiber.Ctx) string {
	role, _ := c.Locals(localRole).(string)
	return role
}

// RequireParent extracts the acting parent or fails with 401.
func RequireParent(c *fiber.Ctx) (string, error) {
	id := ParentID(c)
	if id == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}
