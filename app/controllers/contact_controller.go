package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/hcaptcha"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/mail"
)

// CaptchaVerifier checks a captcha response token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// ContactNotifier forwards contact form submissions.
type ContactNotifier interface {
	Contact(ctx context.Context, to string, m mail.ContactMessage) error
}

type ContactController struct {
	captcha  CaptchaVerifier
	notifier ContactNotifier
	to       string
	validate *validator.Validate
}

func NewContactController(captcha CaptchaVerifier, notifier ContactNotifier, to string) *ContactController {
	return &ContactController{captcha: captcha, notifier: notifier, to: to, validate: validator.New()}
}

type contactRequest struct {
	Name         string `json:"name" validate:"required,max=150"`
	Email        string `json:"email" validate:"required,email,max=200"`
	Message      string `json:"message" validate:"required,max=5000"`
	CaptchaToken string `json:"captcha_token" validate:"required"`
}

// HandleContact answers POST /api/contact.
func (cc *ContactController) HandleContact(c *fiber.Ctx) error {
	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if err := cc.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "name, email, message and captcha_token are required")
	}

	err := cc.captcha.Verify(c.UserContext(), req.CaptchaToken, c.IP())
	switch {
	case err == nil:
	case errors.Is(err, hcaptcha.ErrNotConfigured):
		log.Error("[Contact] HCAPTCHA_SECRET is not set")
		return jsonError(c, fiber.StatusInternalServerError, "Captcha is not configured")
	case errors.Is(err, hcaptcha.ErrRejected):
		return jsonError(c, fiber.StatusBadRequest, "Captcha verification failed")
	case errors.Is(err, hcaptcha.ErrTimeout):
		log.Warnf("[Contact] captcha timeout: %v", err)
		return jsonError(c, fiber.StatusGatewayTimeout, "Captcha verification timed out")
	default:
		log.Warnf("[Contact] captcha upstream: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "Captcha verification unavailable")
	}

	if cc.to == "" {
		log.Error("[Contact] CONTACT_EMAIL is not set")
		return jsonError(c, fiber.StatusInternalServerError, "Contact form is not configured")
	}
	msg := mail.ContactMessage{Name: req.Name, Email: req.Email, Message: req.Message}
	if err := cc.notifier.Contact(c.UserContext(), cc.to, msg); err != nil {
		log.Errorf("[Contact] %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Message could not be sent")
	}
	return c.JSON(fiber.Map{"success": true})
}
