package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "erpbridge/internal/log"
	"erpbridge/internal/services"
)

type HealthHandler struct {
	Bridge *services.BridgeService
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	health, err := h.Bridge.Health(c.UserContext())
	if err != nil {
		applog.Error(c, "health.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "ERROR",
			"message": err.Error(),
		})
	}
	return c.JSON(health)
}
