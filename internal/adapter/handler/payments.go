package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
	"github.com/ibrahimkeyboad/billpay/internal/core/notifications"
	"github.com/ibrahimkeyboad/billpay/internal/core/payments"
)

type PaymentHandler struct {
	Orchestrator *payments.Orchestrator
	Store        storage.Store

	// ReceiptWebhookURL receives payment.receipt events; empty disables them.
	ReceiptWebhookURL string
}

type ProcessPaymentRequest struct {
	BillID          string          `json:"bill_id"`
	PaymentMethodID string          `json:"payment_method_id"` // empty = default method
	Amount          decimal.Decimal `json:"amount"`
}

func (h *PaymentHandler) Process(c *fiber.Ctx) error {
	var req ProcessPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	billID, err := uuid.Parse(req.BillID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid bill ID"})
	}

	methodID := uuid.Nil
	if req.PaymentMethodID != "" {
		if methodID, err = uuid.Parse(req.PaymentMethodID); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment method ID"})
		}
	}

	tx, err := h.Orchestrator.SubmitPayment(c.Context(), currentUser(c), billID, methodID, req.Amount)
	if err != nil {
		// Settlement failures carry the recorded attempt so the client can
		// show it alongside the error.
		if tx.ID != uuid.Nil {
			return c.Status(statusFor(err)).JSON(fiber.Map{
				"error":       err.Error(),
				"transaction": tx,
			})
		}
		return fail(c, err)
	}

	if h.ReceiptWebhookURL != "" {
		go func(tx domain.Transaction) {
			receipt := notifications.Receipt{
				Event:            "payment.receipt",
				UserID:           tx.UserID,
				BillID:           tx.BillID,
				TransactionID:    tx.ID,
				Amount:           tx.Amount.String(),
				ConfirmationCode: tx.ConfirmationCode,
				Timestamp:        tx.Timestamp,
			}
			if err := notifications.SendReceipt(h.ReceiptWebhookURL, receipt); err != nil {
				slog.Error("Receipt webhook failed", "error", err, "transaction_id", tx.ID)
			}
		}(tx)
	}

	return c.JSON(tx)
}

func (h *PaymentHandler) History(c *fiber.Ctx) error {
	txs, err := h.Store.ListTransactions(c.Context(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return c.JSON(txs)
}
