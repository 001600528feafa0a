package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

type MethodHandler struct {
	Store storage.Store
}

type CreateMethodRequest struct {
	Kind domain.MethodKind `json:"kind"`

	// card
	CardNumber string `json:"card_number"`
	Expiry     string `json:"expiry"` // MM/YY
	CVC        string `json:"cvc"`

	// bank_account
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`

	// digital_wallet
	WalletAddress string `json:"wallet_address"`

	IsDefault bool `json:"is_default"`
}

func (h *MethodHandler) List(c *fiber.Ctx) error {
	methods, err := h.Store.ListMethods(c.Context(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	if methods == nil {
		methods = []domain.PaymentMethod{}
	}
	return c.JSON(methods)
}

func (h *MethodHandler) Create(c *fiber.Ctx) error {
	var req CreateMethodRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	method := domain.PaymentMethod{
		ID:        uuid.New(),
		UserID:    currentUser(c),
		Kind:      req.Kind,
		IsDefault: req.IsDefault,
		CreatedAt: time.Now().UTC(),
	}

	switch req.Kind {
	case domain.KindCard:
		valid, brand := domain.ValidateCard(req.CardNumber)
		if !valid {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid card. We only accept Visa and Mastercard.",
			})
		}
		if len(req.CVC) < 3 || len(req.Expiry) != 5 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid CVC or expiry"})
		}
		method.Brand = brand
		method.Last4 = domain.LastFour(req.CardNumber)

	case domain.KindBankAccount:
		if req.BankName == "" || len(req.AccountNumber) < 4 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Bank name and account number are required"})
		}
		method.BankName = req.BankName
		method.Last4 = domain.LastFour(req.AccountNumber)

	case domain.KindDigitalWallet:
		if req.WalletAddress == "" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Wallet address is required"})
		}
		method.WalletRef = domain.MaskReference(req.WalletAddress)
		method.Last4 = domain.LastFour(req.WalletAddress)

	default:
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Kind must be card, bank_account or digital_wallet"})
	}

	if err := h.Store.CreateMethod(c.Context(), method); err != nil {
		slog.Error("Failed to create payment method", "error", err, "user_id", method.UserID)
		return fail(c, err)
	}

	slog.Info("Payment method added", "method_id", method.ID, "kind", method.Kind, "default", method.IsDefault)
	return c.Status(http.StatusCreated).JSON(method)
}

func (h *MethodHandler) Delete(c *fiber.Ctx) error {
	methodID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid method ID"})
	}

	if err := h.Store.DeleteMethod(c.Context(), currentUser(c), methodID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}
