package router

import (
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Feeds before /blog/:slug so the slug route does not swallow them
	app.Get("/blog/rss.xml", h.deps.Blog.HandleRSS)
	app.Get("/sitemap.xml", h.deps.Blog.HandleSitemap)
	app.Get("/blog", h.deps.Blog.HandleIndex)
	app.Get("/blog/:slug", h.deps.Blog.HandleShow)

	// Social OAuth
	app.Get("/auth/:provider/callback", h.deps.OAuth.HandleCallback)
	app.Get("/auth/:provider", h.deps.OAuth.HandleBegin)
	app.Get("/logout", h.deps.OAuth.HandleLogout)
}
