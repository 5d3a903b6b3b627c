package router

import (
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OpsRouter serves metrics, the runtime monitor and the API docs.
type OpsRouter struct {
	deps Deps
}

func NewOpsRouter(deps Deps) *OpsRouter {
	return &OpsRouter{deps: deps}
}

func (o OpsRouter) InstallRouter(app *fiber.App) {
	app.Use(favicon.New(favicon.Config{
		URL:          "/favicon.ico",
		CacheControl: "public, max-age=604800",
	}))

	if o.deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(o.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if o.deps.MonitorPassword != "" {
		app.Get("/monitor", basicauth.New(basicauth.Config{
			Users: map[string]string{o.deps.MonitorUser: o.deps.MonitorPassword},
		}), monitor.New(monitor.Config{Title: "CashDuezy Monitor"}))
	} else {
		log.Info("[Router] MONITOR_PASSWORD not set, /monitor disabled")
	}

	if o.deps.SwaggerFile == "" {
		return
	}
	if _, err := os.Stat(o.deps.SwaggerFile); err != nil {
		log.Warnf("[Router] api docs disabled: %v", err)
		return
	}
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/",
		FilePath: o.deps.SwaggerFile,
		Path:     "api",
		Title:    "CashDuezy API",
	}))
}
