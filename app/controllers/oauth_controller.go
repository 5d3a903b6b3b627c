package controllers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/auth"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/session"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/usercontext"
)

// OAuthController logs users in through Goth providers and keeps the login in
// the server session.
type OAuthController struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	sessions *session.Store
	welcomer Welcomer
	secure   bool
	complete func(c *fiber.Ctx) (goth.User, error)
}

func NewOAuthController(repos *repository.Repositories, sessions *session.Store, welcomer Welcomer, secure bool) *OAuthController {
	return &OAuthController{
		users:    repos.User,
		profiles: repos.Profile,
		sessions: sessions,
		welcomer: welcomer,
		secure:   secure,
		complete: func(c *fiber.Ctx) (goth.User, error) { return gothfiber.CompleteUserAuth(c) },
	}
}

func (oc *OAuthController) loginError(c *fiber.Ctx, message string) error {
	fm := fiber.Map{
		"type":    "error",
		"message": message,
	}
	return flash.WithError(c, fm).Redirect("/login", fiber.StatusSeeOther)
}

// HandleBegin starts the provider redirect.
func (oc *OAuthController) HandleBegin(c *fiber.Ctx) error {
	if _, err := goth.GetProvider(c.Params("provider")); err != nil {
		return oc.loginError(c, "This sign-in provider is not available.")
	}
	return gothfiber.BeginAuthHandler(c)
}

// HandleCallback completes the provider flow and logs the user in
func (oc *OAuthController) HandleCallback(c *fiber.Ctx) error {
	u, err := oc.complete(c)
	if err != nil {
		log.Warnf("[OAuth] %s callback failed: %v", c.Params("provider"), err)
		return oc.loginError(c, "Sign-in failed. Please try again.")
	}

	user, created, err := oc.resolveUser(c, u)
	if err != nil {
		log.Errorf("[OAuth] resolve %s user %s: %v", u.Provider, u.UserID, err)
		return oc.loginError(c, "Your account could not be loaded.")
	}
	if _, err := oc.profiles.Ensure(c.UserContext(), user.ID); err != nil {
		log.Errorf("[OAuth] ensure profile %s: %v", user.ID, err)
	}

	err = oc.sessions.SetValues(c, map[string]interface{}{
		usercontext.AuthKey:     true,
		usercontext.KeyUserID:   user.ID,
		usercontext.KeyUsername: user.DisplayName(),
		usercontext.KeyEmail:    user.Email,
		usercontext.KeyIsAdmin:  user.IsAdmin(),
	})
	if err != nil {
		log.Errorf("[OAuth] session save failed: %v", err)
		return oc.loginError(c, "Your session could not be started.")
	}

	if err := oc.users.TouchLastLogin(user.ID); err != nil {
		log.Warnf("[OAuth] touch last login %s: %v", user.ID, err)
	}
	if created && oc.welcomer != nil {
		if err := oc.welcomer.Welcome(c.UserContext(), user.Email, user.DisplayName()); err != nil {
			log.Errorf("[OAuth] welcome email for %s: %v", user.ID, err)
		}
	}

	c.Set("HX-Redirect", "/dashboard")
	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

// resolveUser finds the user linked to the provider identity, falling back to
// the email address, and creates one when neither matches.
func (oc *OAuthController) resolveUser(c *fiber.Ctx, u goth.User) (*models.User, bool, error) {
	user, err := oc.users.GetByProvider(u.Provider, u.UserID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	email := u.Email
	if email == "" {
		email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
	}
	user, created, err := oc.users.EnsureUser(c.UserContext(), repository.EnsureUserInput{
		Email:     email,
		Name:      firstNonEmpty(u.Name, u.NickName, u.FirstName),
		AvatarURL: u.AvatarURL,
	})
	if err != nil {
		return nil, false, err
	}
	if err := oc.users.LinkProvider(user.ID, u.Provider, u.UserID); err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// HandleLogout ends the server session and drops the bridged cookies.
func (oc *OAuthController) HandleLogout(c *fiber.Ctx) error {
	if err := oc.sessions.Destroy(c); err != nil {
		log.Warnf("[OAuth] session destroy failed: %v", err)
	}
	auth.ClearSessionCookies(c, oc.secure)
	c.Set("HX-Redirect", "/")
	return c.Redirect("/", fiber.StatusSeeOther)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
