// Package views embeds the server rendered page templates.
package views

import (
	"embed"
	"net/http"
	"time"

	"github.com/gofiber/template/html/v2"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/tracker"
)

//go:embed layouts/*.html pages/*.html blog/*.html
var files embed.FS

// MainLayout wraps every full page.
const MainLayout = "layouts/main"

// Engine returns the template engine for fiber.Config.Views.
func Engine(reload bool) *html.Engine {
	engine := html.NewFileSystem(http.FS(files), ".html")
	engine.Reload(reload)
	engine.AddFunc("money", func(cents int64, currency string) string {
		return tracker.FormatAmount(cents) + " " + currency
	})
	engine.AddFunc("date", func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	})
	engine.AddFunc("isodate", func(t time.Time) string {
		return t.Format("2006-01-02")
	})
	return engine
}
