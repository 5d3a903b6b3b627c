package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IdleArchive/cashduezy-sub000/app/controllers"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps carries the controllers and ops settings the routers need. It is
// assembled once in cmd/cashduezy.
type Deps struct {
	Identity middleware.Identity

	Pages      *controllers.PageController
	Webhook    *controllers.WebhookController
	Checkout   *controllers.CheckoutController
	Session    *controllers.SessionController
	OAuth      *controllers.OAuthController
	Blog       *controllers.BlogController
	Dashboard  *controllers.DashboardController
	Contact    *controllers.ContactController
	AdminQueue *controllers.AdminQueueController

	// LimiterStorage backs the /api rate limiter; nil keeps counters in memory.
	LimiterStorage fiber.Storage
	APIRateLimit   int

	Gatherer        prometheus.Gatherer
	MonitorUser     string
	MonitorPassword string
	SwaggerFile     string
	Secure          bool
}

func InstallRouter(app *fiber.App, deps Deps) {
	// identity has to be resolved before any route guard runs
	app.Use(middleware.UserContextMiddleware(deps.Identity))

	// the HTML router goes last because it installs the 404 fallback
	setup(app, NewOpsRouter(deps), NewApiRouter(deps), NewHttpRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
