package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Deps
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	limit := h.deps.APIRateLimit
	if limit <= 0 {
		limit = 60
	}
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
		Storage:    h.deps.LimiterStorage,
		// provider retries must never be throttled
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/webhooks/")
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests",
			})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// signature-verified, no session
	api.Post("/webhooks/stripe", h.deps.Webhook.HandleStripeWebhook)

	api.Post("/checkout", h.deps.Checkout.HandleCheckout)
	api.Post("/auth/session", h.deps.Session.HandleSessionBridge)
	api.Post("/contact", h.deps.Contact.HandleContact)

	// Blog admin
	api.Post("/blog/cover", middleware.RequireAPIAdmin, h.deps.Blog.HandleUploadCover)
	api.Post("/blog", middleware.RequireAPIAdmin, h.deps.Blog.HandleCreatePost)
	api.Put("/blog/:id", middleware.RequireAPIAdmin, h.deps.Blog.HandleUpdatePost)
	api.Delete("/blog/:id", middleware.RequireAPIAdmin, h.deps.Blog.HandleDeletePost)

	// Queue monitor
	admin := api.Group("/admin", middleware.RequireAPIAdmin)
	admin.Get("/queues", h.deps.AdminQueue.HandleAdminQueues)
	admin.Delete("/queues/:key", h.deps.AdminQueue.HandleAdminQueueDelete)

	// Dashboard API
	v1 := api.Group("/v1", middleware.RequireAPISessionAuth)
	v1.Get("/subscriptions/export.csv", h.deps.Dashboard.HandleExport)
	v1.Get("/subscriptions", h.deps.Dashboard.HandleList)
	v1.Post("/subscriptions", h.deps.Dashboard.HandleCreate)
	v1.Put("/subscriptions/:id", h.deps.Dashboard.HandleUpdate)
	v1.Delete("/subscriptions/:id", h.deps.Dashboard.HandleDelete)
	v1.Get("/dashboard/summary", h.deps.Dashboard.HandleSummary)
	v1.Get("/account", h.deps.Dashboard.HandleAccount)

	api.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "Unknown API endpoint",
		})
	})
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}
