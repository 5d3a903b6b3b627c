package controllers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/auth"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/mail"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/metrics"
)

// Welcomer sends the welcome message to a newly created user.
type Welcomer interface {
	Welcome(ctx context.Context, to, name string) error
}

// SessionController mirrors the client side auth session into cookies the
// server can read.
type SessionController struct {
	verifier *auth.Verifier
	users    repository.UserRepository
	profiles repository.ProfileRepository
	welcomer Welcomer
	metrics  *metrics.Metrics
	secure   bool
	// async runs user provisioning detached from the request.
	async   func(func())
	timeout time.Duration
}

func NewSessionController(verifier *auth.Verifier, repos *repository.Repositories, welcomer Welcomer, mx *metrics.Metrics, secure bool) *SessionController {
	return &SessionController{
		verifier: verifier,
		users:    repos.User,
		profiles: repos.Profile,
		welcomer: welcomer,
		metrics:  mx,
		secure:   secure,
		async:    func(fn func()) { go fn() },
		timeout:  10 * time.Second,
	}
}

// HandleSessionBridge always answers {ok:true}; a bad body clears nothing and
// is only logged.
func (sc *SessionController) HandleSessionBridge(c *fiber.Ctx) error {
	var req auth.BridgeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.Warnf("[Auth] malformed session bridge body: %v", err)
		sc.metrics.ObserveSessionBridge("malformed")
		return c.JSON(fiber.Map{"ok": true})
	}
	sc.metrics.ObserveSessionBridge(req.Event)

	if !req.Mirrors() {
		auth.ClearSessionCookies(c, sc.secure)
		return c.JSON(fiber.Map{"ok": true})
	}

	auth.SetSessionCookies(c, req.Session, sc.secure)
	if req.Provisions() {
		sc.provision(req.Session.AccessToken)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// provision makes sure the user and profile rows exist. It never blocks or
// fails the bridge response.
func (sc *SessionController) provision(accessToken string) {
	claims, err := sc.verifier.Verify(accessToken)
	if err != nil {
		log.Warnf("[Auth] not provisioning user: %v", err)
		return
	}
	sc.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sc.timeout)
		defer cancel()

		user, created, err := sc.users.EnsureUser(ctx, repository.EnsureUserInput{
			ID:        claims.Subject,
			Email:     claims.Email,
			Name:      claims.Name(),
			AvatarURL: claims.AvatarURL(),
		})
		if err != nil {
			log.Errorf("[Auth] ensure user %s: %v", claims.Subject, err)
			return
		}
		if _, err := sc.profiles.Ensure(ctx, user.ID); err != nil {
			log.Errorf("[Auth] ensure profile %s: %v", user.ID, err)
		}
		if err := sc.users.TouchLastLogin(user.ID); err != nil {
			log.Warnf("[Auth] touch last login %s: %v", user.ID, err)
		}
		if created && sc.welcomer != nil {
			if err := sc.welcomer.Welcome(ctx, user.Email, user.DisplayName()); err != nil {
				log.Errorf("[Auth] welcome email for %s: %v", user.ID, err)
			}
		}
	})
}

var _ Welcomer = (*mail.Outbox)(nil)
