package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/usercontext"
	"github.com/IdleArchive/cashduezy-sub000/views"
)

// render executes a page template inside the main layout with the user
// context and pending flash message added to data.
func render(c *fiber.Ctx, name, title string, data fiber.Map) error {
	bind := fiber.Map{
		"Title": title,
		"User":  usercontext.GetUserContext(c),
		"Flash": flash.Get(c),
	}
	for k, v := range data {
		bind[k] = v
	}
	return c.Render(name, bind, views.MainLayout)
}

func renderError(c *fiber.Ctx, code int, message string) error {
	c.Status(code)
	return render(c, "pages/error", message, fiber.Map{"Code": code, "Message": message})
}
