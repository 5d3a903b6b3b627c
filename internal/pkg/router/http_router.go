package router

import (
	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
	deps Deps
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)

	app.Use(h.deps.Pages.HandleNotFound)
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}
