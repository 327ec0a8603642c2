package handlers

import (
	"github.com/gofiber/fiber/v2"

	"erpbridge/internal/config"
	"erpbridge/internal/querylog"
	"erpbridge/internal/repos"
)

// DiagHandler serves the operator views: recent queries and the status page.
type DiagHandler struct {
	Log  *querylog.Log
	Pool *repos.Pool
	DB   config.DB
}

func (h *DiagHandler) Logs(c *fiber.Ctx) error {
	return c.JSON(h.Log.Entries())
}

// Status renders the landing page. It never opens a session itself.
func (h *DiagHandler) Status(c *fiber.Ctx) error {
	return c.Render("status", fiber.Map{
		"Server":    h.Pool.Server(),
		"Driver":    h.DB.Driver,
		"Connected": h.Pool.Connected(),
		"Logs":      h.Log.Entries(),
	})
}
