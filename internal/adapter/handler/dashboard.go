package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/billpay/internal/core/metrics"
)

type DashboardHandler struct {
	Aggregator *metrics.Aggregator
}

func (h *DashboardHandler) Metrics(c *fiber.Ctx) error {
	dashboard, err := h.Aggregator.ComputeMetrics(c.Context(), currentUser(c), time.Now().UTC())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dashboard)
}
