package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "erpbridge/internal/log"
	"erpbridge/internal/services"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
}

func (h *CatalogHandler) Products(c *fiber.Ctx) error {
	prods, src, err := h.Catalog.Products(c.UserContext())
	if err != nil {
		applog.Error(c, "products.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set("X-Data-Source", string(src))
	return c.JSON(prods)
}

func (h *CatalogHandler) Customers(c *fiber.Ctx) error {
	custs, src, err := h.Catalog.Customers(c.UserContext())
	if err != nil {
		applog.Error(c, "customers.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set("X-Data-Source", string(src))
	return c.JSON(custs)
}
