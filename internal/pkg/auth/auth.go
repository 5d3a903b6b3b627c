// Package auth verifies access tokens issued by the hosted identity provider
// and mirrors provider sessions into server readable cookies.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Cookie names shared with the client side auth library.
const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"
)

// Auth state change events forwarded by the client.
const (
	EventInitialSession  = "INITIAL_SESSION"
	EventSignedIn        = "SIGNED_IN"
	EventSignedOut       = "SIGNED_OUT"
	EventTokenRefreshed  = "TOKEN_REFRESHED"
	EventUserUpdated     = "USER_UPDATED"
	EventPasswordRecover = "PASSWORD_RECOVERY"
)

var (
	ErrNoSecret     = errors.New("auth: token secret not configured")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims is the subset of provider JWT claims the app reads. The subject is
// the opaque user id.
type Claims struct {
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// Name returns the display name from user metadata, if any.
func (c *Claims) Name() string {
	for _, k := range []string{"full_name", "name", "user_name"} {
		if v, ok := c.UserMetadata[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// AvatarURL returns the avatar from user metadata, if any.
func (c *Claims) AvatarURL() string {
	if v, ok := c.UserMetadata["avatar_url"].(string); ok {
		return v
	}
	return ""
}

// Verifier checks HS256 access tokens.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: 30 * time.Second}
}

// Verify parses and validates a token and returns its claims.
func (v *Verifier) Verify(token string) (*Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, ErrNoSecret
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// SessionPayload is the client session forwarded to the bridge.
type SessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	User         *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user,omitempty"`
}

// BridgeRequest is the body of POST /api/auth/session.
type BridgeRequest struct {
	Event   string          `json:"event"`
	Session *SessionPayload `json:"session"`
}

// Mirrors reports whether the request should set cookies rather than clear them.
func (r BridgeRequest) Mirrors() bool {
	return r.Session != nil && r.Event != EventSignedOut
}

// Provisions reports whether the event should ensure local user rows.
func (r BridgeRequest) Provisions() bool {
	return r.Mirrors() && (r.Event == EventSignedIn || r.Event == EventInitialSession)
}

// expiry picks the absolute expiry, falling back to expires_in and then an hour.
func (p *SessionPayload) expiry(now time.Time) time.Time {
	switch {
	case p.ExpiresAt > 0:
		return time.Unix(p.ExpiresAt, 0)
	case p.ExpiresIn > 0:
		return now.Add(time.Duration(p.ExpiresIn) * time.Second)
	default:
		return now.Add(time.Hour)
	}
}

// SetSessionCookies mirrors the tokens into HTTP-only cookies. The refresh
// token outlives the access token so the client can renew.
func SetSessionCookies(c *fiber.Ctx, p *SessionPayload, secure bool) {
	now := time.Now()
	c.Cookie(&fiber.Cookie{
		Name:     AccessTokenCookie,
		Value:    p.AccessToken,
		Path:     "/",
		Expires:  p.expiry(now),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     RefreshTokenCookie,
		Value:    p.RefreshToken,
		Path:     "/",
		Expires:  now.Add(30 * 24 * time.Hour),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookies expires both bridged cookies.
func ClearSessionCookies(c *fiber.Ctx, secure bool) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			Secure:   secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
}
