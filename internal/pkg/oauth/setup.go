package oauth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
)

// Config holds the OAuth client credentials. A provider without a key is not registered.
type Config struct {
	BaseURL      string
	GoogleKey    string
	GoogleSecret string
	GithubKey    string
	GithubSecret string
	Secure       bool
}

func ConfigFromEnv() Config {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "8080")
	}
	return Config{
		BaseURL:      base,
		GoogleKey:    env.GetEnv("GOOGLE_KEY", ""),
		GoogleSecret: env.GetEnv("GOOGLE_SECRET", ""),
		GithubKey:    env.GetEnv("GITHUB_KEY", ""),
		GithubSecret: env.GetEnv("GITHUB_SECRET", ""),
		Secure:       !env.IsDev(),
	}
}

// Setup registers the configured Goth providers and keeps OAuth state in
// stateStorage. It returns the names of the registered providers.
func Setup(cfg Config, stateStorage fiber.Storage) []string {
	var providers []goth.Provider
	var names []string

	if cfg.GoogleKey != "" {
		providers = append(providers, google.New(cfg.GoogleKey, cfg.GoogleSecret, cfg.BaseURL+"/auth/google/callback", "email", "profile"))
		names = append(names, "google")
	}
	if cfg.GithubKey != "" {
		providers = append(providers, github.New(cfg.GithubKey, cfg.GithubSecret, cfg.BaseURL+"/auth/github/callback", "user:email"))
		names = append(names, "github")
	}

	goth.ClearProviders()
	if len(providers) > 0 {
		goth.UseProviders(providers...)
	} else {
		log.Warn("[OAuth] no providers configured")
	}

	gothfiber.SessionStore = session.New(session.Config{
		Storage:        stateStorage,
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   cfg.Secure,
		Expiration:     72 * time.Hour,
	})
	return names
}
