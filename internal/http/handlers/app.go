package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/google/uuid"

	"erpbridge/internal/config"
	applog "erpbridge/internal/log"
	"erpbridge/web"
)

// NewApp builds the relay with its middleware chain and routes.
func NewApp(cfg config.Config, deps *Deps) *fiber.App {
	engine := html.NewFileSystem(http.FS(web.Templates()), ".html")

	app := fiber.New(fiber.Config{
		Views:                 engine,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New())
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	// Chrome asks before letting a public page reach a LAN address.
	app.Use(func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions && c.Get("Access-Control-Request-Private-Network") == "true" {
			c.Set("Access-Control-Allow-Private-Network", "true")
		}
		return c.Next()
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type, Authorization",
	}))

	orderLimiter := limiter.New(limiter.Config{
		Max:        cfg.OrderRateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.orders.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many orders, retry in a minute"})
		},
	})

	app.Get("/", deps.DiagHandler.Status)
	app.Get("/health", deps.HealthHandler.Check)
	app.Get("/products", deps.CatalogHandler.Products)
	app.Get("/customers", deps.CatalogHandler.Customers)
	app.Post("/orders", orderLimiter, deps.OrderHandler.Create)
	app.Get("/orders/:id", deps.OrderHandler.Get)
	app.Get("/logs", deps.DiagHandler.Logs)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
	return app
}

// errorHandler keeps fiber's own 4xx messages and hides anything else.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < 500 {
		code, msg = fe.Code, fe.Message
	}
	if code >= 500 {
		applog.Error(c, "server.error", err, nil)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
