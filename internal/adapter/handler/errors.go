package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

// statusFor maps the domain error taxonomy onto HTTP statuses. Validation
// failures are 400, missing or foreign entities 404, lifecycle and race
// losses 409, settlement outcomes 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrAlreadyInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrNoPaymentMethod),
		errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSettlementDeclined),
		errors.Is(err, domain.ErrSettlementTimeout):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

// currentUser reads the user ID the auth middleware stored in locals.
func currentUser(c *fiber.Ctx) uuid.UUID {
	userID, _ := c.Locals(middleware.UserIDKey).(uuid.UUID)
	return userID
}
