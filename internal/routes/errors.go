package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/schoollunch/lunchwallet/internal/auth"
	"github.com/schoollunch/lunchwallet/internal/children"
	"github.com/schoollunch/lunchwallet/internal/lunch"
	"github.com/schoollunch/lunchwallet/internal/middleware"
	"github.com/schoollunch/lunchwallet/internal/orders"
	"github.com/schoollunch/lunchwallet/internal/parent"
	"github.com/schoollunch/lunchwallet/internal/wallet"
)

const unexpectedErrorMessage = "An unexpected error occurred"

// ErrorHandler renders handler errors as JSON. Domain errors map to their
// status; anything unrecognised is a 500 with a generic message.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", middleware.RequestIDFrom(c)),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(fiber.Map{"error": message})
	}
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	switch {
	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, children.ErrInvalidChild),
		errors.Is(err, orders.ErrInvalidOrder),
		errors.Is(err, parent.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, parent.ErrInvalidCredentials),
		errors.Is(err, parent.ErrInactive),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, orders.ErrPaymentRejected):
		return http.StatusPaymentRequired, orders.ErrPaymentRejected.Error()
	case errors.Is(err, children.ErrNotOwner),
		errors.Is(err, wallet.ErrNotOwner):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, wallet.ErrNotFound),
		errors.Is(err, children.ErrNotFound),
		errors.Is(err, parent.ErrNotFound),
		errors.Is(err, orders.ErrOrderNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, parent.ErrUsernameTaken),
		errors.Is(err, wallet.ErrWalletExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, lunch.ErrClientRejected):
		return http.StatusUnprocessableEntity, lunch.ErrClientRejected.Error()
	case errors.Is(err, lunch.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, lunch.ErrServiceUnavailable.Error()
	default:
		return http.StatusInternalServerError, unexpectedErrorMessage
	}
}
