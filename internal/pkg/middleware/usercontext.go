package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/auth"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/session"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/usercontext"
)

// Identity bundles what UserContextMiddleware needs to resolve a request.
type Identity struct {
	Sessions *session.Store
	Verifier *auth.Verifier
	Users    repository.UserRepository
	Profiles repository.ProfileRepository
}

// UserContextMiddleware sets up the complete user context for every request.
// The server session from an OAuth login wins over a bridged access token.
func UserContextMiddleware(id Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session store on /auth/*; skip ours there.
		if strings.HasPrefix(c.Path(), "/auth/") {
			usercontext.Set(c, usercontext.Anonymous())
			return c.Next()
		}

		uc, ok := id.fromSession(c)
		if !ok {
			uc, ok = id.fromToken(c)
		}
		if !ok {
			uc = usercontext.Anonymous()
		} else {
			uc.Plan = id.plan(uc.UserID)
		}
		usercontext.Set(c, uc)
		return c.Next()
	}
}

func (id Identity) fromSession(c *fiber.Ctx) (usercontext.UserContext, bool) {
	if id.Sessions == nil {
		return usercontext.UserContext{}, false
	}
	sess, err := id.Sessions.Get(c)
	if err != nil {
		log.Warnf("[UserContext] session lookup failed: %v", err)
		return usercontext.UserContext{}, false
	}
	userID, _ := sess.Get(usercontext.KeyUserID).(string)
	if userID == "" {
		return usercontext.UserContext{}, false
	}
	name, _ := sess.Get(usercontext.KeyUsername).(string)
	email, _ := sess.Get(usercontext.KeyEmail).(string)
	admin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)
	return usercontext.UserContext{
		UserID:     userID,
		Username:   name,
		Email:      email,
		IsLoggedIn: true,
		IsAdmin:    admin,
		Source:     usercontext.SourceSession,
	}, true
}

func (id Identity) fromToken(c *fiber.Ctx) (usercontext.UserContext, bool) {
	token := c.Cookies(auth.AccessTokenCookie)
	if token == "" || id.Verifier == nil {
		return usercontext.UserContext{}, false
	}
	claims, err := id.Verifier.Verify(token)
	if err != nil {
		log.Debugf("[UserContext] ignoring access token: %v", err)
		return usercontext.UserContext{}, false
	}

	uc := usercontext.UserContext{
		UserID:     claims.Subject,
		Username:   claims.Name(),
		Email:      claims.Email,
		IsLoggedIn: true,
		Source:     usercontext.SourceToken,
	}
	// the role lives on the local row; a missing row is a plain user
	if id.Users != nil {
		if u, err := id.Users.GetByID(claims.Subject); err == nil {
			uc.IsAdmin = u.IsAdmin()
			if uc.Username == "" {
				uc.Username = u.DisplayName()
			}
		}
	}
	return uc, true
}

func (id Identity) plan(userID string) string {
	if id.Profiles == nil {
		return models.PlanFree
	}
	p, err := id.Profiles.GetByUserID(userID)
	if err != nil || p.Plan == "" {
		return models.PlanFree
	}
	return p.Plan
}
