package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   h.deps.Secure,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", h.deps.Pages.HandleHome)
	group.Get("/pricing", h.deps.Pages.HandlePricing)
	group.Get("/contact", h.deps.Pages.HandleContact)
	group.Get("/login", h.deps.Pages.HandleLogin)
	group.Get("/dashboard", middleware.RequireAuth, h.deps.Dashboard.HandleDashboard)
}
