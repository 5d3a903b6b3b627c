package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/entitlements"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/usercontext"
)

// PageController renders the static marketing pages.
type PageController struct {
	posts          repository.BlogPostRepository
	providers      []string
	captchaSiteKey string
}

func NewPageController(posts repository.BlogPostRepository, providers []string, captchaSiteKey string) *PageController {
	return &PageController{posts: posts, providers: providers, captchaSiteKey: captchaSiteKey}
}

func (pc *PageController) HandleHome(c *fiber.Ctx) error {
	posts, err := pc.posts.GetPublished(0, 3)
	if err != nil {
		log.Warnf("[Pages] latest posts: %v", err)
	}
	return render(c, "pages/home", "Bill tracking", fiber.Map{"Posts": posts})
}

func (pc *PageController) HandlePricing(c *fiber.Ctx) error {
	return render(c, "pages/pricing", "Pricing", fiber.Map{
		"FreeLimit": entitlements.FreeSubscriptionLimit,
		"Checkout":  c.Query("checkout"),
	})
}

func (pc *PageController) HandleLogin(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return render(c, "pages/login", "Log in", fiber.Map{"Providers": pc.providers})
}

func (pc *PageController) HandleContact(c *fiber.Ctx) error {
	return render(c, "pages/contact", "Contact", fiber.Map{"CaptchaSiteKey": pc.captchaSiteKey})
}

// HandleNotFound is the catch-all for unknown routes.
func (pc *PageController) HandleNotFound(c *fiber.Ctx) error {
	return renderError(c, fiber.StatusNotFound, "Page not found")
}
