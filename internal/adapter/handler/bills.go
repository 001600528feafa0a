package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

type BillHandler struct {
	Store storage.Store
}

type CreateBillRequest struct {
	BillerName    string          `json:"biller_name"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
}

func (h *BillHandler) List(c *fiber.Ctx) error {
	bills, err := h.Store.ListBills(c.Context(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	if bills == nil {
		bills = []domain.Bill{}
	}
	return c.JSON(bills)
}

func (h *BillHandler) Create(c *fiber.Ctx) error {
	var req CreateBillRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.BillerName == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Biller name is required"})
	}
	if !req.Amount.IsPositive() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be positive"})
	}
	if !domain.BillCategories[req.Category] {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Category must be utility, telecom, insurance or government"})
	}
	if req.DueDate.IsZero() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Due date is required"})
	}

	bill := domain.Bill{
		ID:            uuid.New(),
		UserID:        currentUser(c),
		BillerName:    req.BillerName,
		AccountNumber: domain.MaskReference(req.AccountNumber),
		Amount:        req.Amount,
		DueDate:       req.DueDate,
		Status:        domain.BillPending,
		Category:      req.Category,
		Description:   req.Description,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.Store.CreateBill(c.Context(), bill); err != nil {
		slog.Error("Failed to create bill", "error", err, "user_id", bill.UserID)
		return fail(c, err)
	}

	slog.Info("Bill created", "bill_id", bill.ID, "biller", bill.BillerName, "amount", bill.Amount.String())
	return c.Status(http.StatusCreated).JSON(bill)
}

func (h *BillHandler) Update(c *fiber.Ctx) error {
	billID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid bill ID"})
	}

	var patch domain.BillPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if patch.Amount != nil && !patch.Amount.IsPositive() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be positive"})
	}
	if patch.Category != nil && !domain.BillCategories[*patch.Category] {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Category must be utility, telecom, insurance or government"})
	}

	bill, err := h.Store.UpdateBill(c.Context(), currentUser(c), billID, patch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(bill)
}

func (h *BillHandler) Delete(c *fiber.Ctx) error {
	billID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid bill ID"})
	}

	if err := h.Store.DeleteBill(c.Context(), currentUser(c), billID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}
