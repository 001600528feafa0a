package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
)

// Idempotency replays the cached response for a repeated Idempotency-Key.
// The UI sends one key per payment submission, so a double-clicked pay
// button cannot create a second transaction. The cache is scoped to the
// authenticated user, so one user's key can never replay another user's
// response.
func Idempotency(store storage.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}
		userID, _ := c.Locals(UserIDKey).(uuid.UUID)
		key = userID.String() + ":" + key

		status, body, hit, err := store.CachedResponse(c.Context(), key)
		if err != nil {
			slog.Error("Idempotency lookup failed", "error", err, "key", key)
			return c.Next()
		}
		if hit {
			slog.Info("🛑 Idempotency hit, returning cached response", "key", key)
			c.Set("X-Idempotency-Hit", "true")
			c.Set("Content-Type", "application/json")
			return c.Status(status).Send(body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		resStatus := c.Response().StatusCode()
		resBody := c.Response().Body()
		if err := store.SaveResponse(c.Context(), key, resStatus, resBody); err != nil {
			slog.Error("Failed to save idempotency key", "error", err, "key", key)
		}
		return nil
	}
}
