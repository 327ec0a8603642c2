package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	"erpbridge/internal/domain"
	applog "erpbridge/internal/log"
	"erpbridge/internal/repos"
	"erpbridge/internal/services"
	"erpbridge/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
	Repo   *repos.OrderRepo
}

type orderRequest struct {
	ID           string            `json:"id"`
	CustomerID   string            `json:"customerId"`
	CustomerName string            `json:"customerName"`
	Items        []domain.CartItem `json:"items"`
	Total        float64           `json:"total"`
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var req orderRequest
	if err := c.BodyParser(&req); err != nil {
		applog.Security(c, "order.body.invalid", map[string]any{"err": err.Error()})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order payload"})
	}

	o, err := h.Orders.Create(c.UserContext(), domain.Order{
		ID:           req.ID,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Items:        req.Items,
		Total:        req.Total,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrder) {
			applog.Security(c, "order.rejected", map[string]any{"reason": err.Error(), "customer": req.CustomerID})
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		applog.Error(c, "order.create.fail", err, map[string]any{"order_id": req.ID})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	applog.Audit(c, "order.create", map[string]any{
		"order_id": o.ID,
		"customer": o.CustomerID,
		"lines":    len(o.Items),
		"total":    o.Total,
	})
	return c.JSON(o)
}

// Get handles GET /orders/:id and returns the stored header.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.OrderID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}
	row, err := h.Repo.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}
		applog.Error(c, "order.get.fail", err, map[string]any{"order_id": id})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"id":           row.ID,
		"customerId":   row.CustomerID,
		"customerName": row.CustomerName,
		"date":         row.Date,
		"total":        row.Total,
		"status":       row.Status,
	})
}
