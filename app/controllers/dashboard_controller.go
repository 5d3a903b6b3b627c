package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/entitlements"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/tracker"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/usercontext"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/utils"
)

// DashboardController serves the subscription tracker page and its JSON API.
type DashboardController struct {
	tracker  *tracker.Service
	profiles repository.ProfileRepository
}

func NewDashboardController(t *tracker.Service, profiles repository.ProfileRepository) *DashboardController {
	return &DashboardController{tracker: t, profiles: profiles}
}

func listFilter(c *fiber.Ctx) repository.ListFilter {
	return repository.ListFilter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
		Sort:     c.Query("sort", "next_payment"),
		Desc:     c.Query("order") == "desc",
	}
}

func plan(c *fiber.Ctx) entitlements.Plan {
	return entitlements.Normalize(usercontext.GetUserContext(c).Plan)
}

// HandleDashboard renders GET /dashboard.
func (dc *DashboardController) HandleDashboard(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	subs, err := dc.tracker.List(userID, listFilter(c))
	if err != nil {
		log.Errorf("[Dashboard] list for %s: %v", userID, err)
		return renderError(c, fiber.StatusInternalServerError, "Your dashboard could not be loaded")
	}
	summary := tracker.Summarize(subs, time.Now())
	return render(c, "pages/dashboard", "Dashboard", fiber.Map{
		"Subscriptions": subs,
		"Summary":       summary,
		"Limit":         entitlements.SubscriptionLimit(plan(c)),
		"Checkout":      c.Query("checkout"),
	})
}

// HandleList answers GET /api/v1/subscriptions.
func (dc *DashboardController) HandleList(c *fiber.Ctx) error {
	subs, err := dc.tracker.List(usercontext.GetUserID(c), listFilter(c))
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "list_failed", "Subscriptions could not be loaded")
	}
	if subs == nil {
		subs = []models.TrackedSubscription{}
	}
	return c.JSON(fiber.Map{"subscriptions": subs, "count": len(subs)})
}

// HandleCreate answers POST /api/v1/subscriptions.
func (dc *DashboardController) HandleCreate(c *fiber.Ctx) error {
	var in tracker.Input
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}
	sub, err := dc.tracker.Create(usercontext.GetUserID(c), plan(c), in)
	if err != nil {
		return dc.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subscription": sub})
}

// HandleUpdate answers PUT /api/v1/subscriptions/:id.
func (dc *DashboardController) HandleUpdate(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid_id", "Invalid subscription id")
	}
	var in tracker.Input
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON")
	}
	sub, err := dc.tracker.Update(usercontext.GetUserID(c), id, in)
	if err != nil {
		return dc.writeError(c, err)
	}
	return c.JSON(fiber.Map{"subscription": sub})
}

// HandleDelete answers DELETE /api/v1/subscriptions/:id.
func (dc *DashboardController) HandleDelete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid_id", "Invalid subscription id")
	}
	if err := dc.tracker.Delete(usercontext.GetUserID(c), id); err != nil {
		return dc.writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleSummary answers GET /api/v1/dashboard/summary.
func (dc *DashboardController) HandleSummary(c *fiber.Ctx) error {
	s, err := dc.tracker.Summary(usercontext.GetUserID(c))
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "summary_failed", "Summary could not be computed")
	}
	return c.JSON(s)
}

// HandleExport answers GET /api/v1/subscriptions/export.csv for pro users.
func (dc *DashboardController) HandleExport(c *fiber.Ctx) error {
	if !entitlements.CanExportCSV(plan(c)) {
		return apiError(c, fiber.StatusForbidden, "upgrade_required", "CSV export is part of the Pro plan")
	}
	subs, err := dc.tracker.List(usercontext.GetUserID(c), listFilter(c))
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "export_failed", "Subscriptions could not be loaded")
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="subscriptions-%s.csv"`, time.Now().Format("2006-01-02")))
	return tracker.WriteCSV(c.Response().BodyWriter(), subs)
}

// HandleAccount answers GET /api/v1/account.
func (dc *DashboardController) HandleAccount(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	profile, err := dc.profiles.GetByUserID(uc.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return apiError(c, fiber.StatusInternalServerError, "account_failed", "Account could not be loaded")
	}
	p := entitlements.Normalize(uc.Plan)
	resp := fiber.Map{
		"user_id":            uc.UserID,
		"email":              uc.Email,
		"name":               uc.Username,
		"avatar_url":         utils.AvatarURL("", uc.Email, 80),
		"plan":               p,
		"subscription_limit": entitlements.SubscriptionLimit(p),
		"can_export_csv":     entitlements.CanExportCSV(p),
		"reminders":          entitlements.ReceivesReminders(p),
	}
	if profile != nil {
		resp["subscription_status"] = profile.SubscriptionStatus
		resp["current_period_end"] = profile.CurrentPeriodEnd
		resp["has_billing_customer"] = profile.BillingCustomerID != nil
	}
	return c.JSON(resp)
}

func (dc *DashboardController) writeError(c *fiber.Ctx, err error) error {
	var verr *tracker.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": "Some fields are invalid",
			"fields":  verr.Fields,
		})
	case errors.Is(err, tracker.ErrLimitReached):
		return apiError(c, fiber.StatusForbidden, "limit_reached",
			fmt.Sprintf("The free plan tracks up to %d subscriptions. Upgrade to Pro for more.", entitlements.FreeSubscriptionLimit))
	case errors.Is(err, tracker.ErrNotFound):
		return apiError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
	default:
		log.Errorf("[Dashboard] %v", err)
		return apiError(c, fiber.StatusInternalServerError, "internal_error", "Something went wrong")
	}
}

// apiError writes the {error, message} body used by the /api/v1 endpoints.
func apiError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}
