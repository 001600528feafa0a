package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
	"github.com/ibrahimkeyboad/billpay/internal/core/security"
)

// UserIDKey is where Protected stores the authenticated user's ID in the
// request locals.
const UserIDKey = "user_id"

// Protected resolves the bearer token to a user. Only the token's SHA256
// hash is ever compared against the store.
func Protected(store storage.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing bearer token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid header format"})
		}

		userID, err := store.UserIDByToken(c.Context(), security.HashToken(parts[1]))
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}
