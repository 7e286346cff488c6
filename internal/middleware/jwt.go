package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier validates a bearer token and resolves the principal behind it.
// Implementations reject tokens whose version no longer matches the account.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// JWTAuth returns a middleware that validates access tokens and stores the
// acting parent in the request locals.
func JWTAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		principal, err := verifier.Verify(c.UserContext(), tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(localParentID, principal.ParentID)
		c.Locals(localRole, principal.Role)
		return c.Next()
	}
}
