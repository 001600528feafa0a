package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
	"github.com/ibrahimkeyboad/billpay/internal/core/security"
)

type AuthHandler struct {
	Store storage.Store
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "A valid email is required"})
	}
	if len(req.Password) < 6 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Password must be at least 6 characters"})
	}
	if req.Name == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}

	hash, salt, err := security.HashPassword(req.Password, "")
	if err != nil {
		slog.Error("Crypto error hashing password", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Crypto error"})
	}

	user := domain.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: hash,
		PasswordSalt: salt,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Store.CreateUser(c.Context(), user); err != nil {
		return fail(c, err)
	}

	token, err := h.issueToken(c, user.ID)
	if err != nil {
		return err
	}

	slog.Info("✅ User registered", "user_id", user.ID, "email", user.Email)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.Store.UserByEmail(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !security.VerifyPassword(req.Password, user.PasswordSalt, user.PasswordHash) {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Incorrect email or password"})
	}

	token, err := h.issueToken(c, user.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) == 2 {
		if err := h.Store.DeleteToken(c.Context(), security.HashToken(parts[1])); err != nil {
			slog.Error("Failed to delete token", "error", err)
		}
	}
	return c.JSON(fiber.Map{"message": "Successfully logged out"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.Store.UserByID(c.Context(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

func (h *AuthHandler) issueToken(c *fiber.Ctx, userID uuid.UUID) (string, error) {
	token, tokenHash, err := security.GenerateToken()
	if err != nil {
		slog.Error("Crypto error generating token", "error", err)
		return "", c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Crypto error"})
	}
	if err := h.Store.SaveToken(c.Context(), userID, tokenHash); err != nil {
		slog.Error("Failed to save token", "error", err, "user_id", userID)
		return "", c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save token"})
	}
	return token, nil
}
