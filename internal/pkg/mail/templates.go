package mail

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	KindWelcome  = "welcome"
	KindReminder = "reminder"
	KindContact  = "contact"
)

// Renderer turns a template and its data into an HTML body.
type Renderer struct {
	engine  *html.Engine
	baseURL string
}

// NewRenderer loads the embedded email templates.
func NewRenderer(baseURL string) (*Renderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load mail templates: %w", err)
	}
	return &Renderer{engine: engine, baseURL: baseURL}, nil
}

// Render executes template name inside the shared layout. data gets Subject
// and BaseURL added.
func (r *Renderer) Render(name, subject string, data map[string]interface{}) (string, error) {
	binding := map[string]interface{}{}
	for k, v := range data {
		binding[k] = v
	}
	binding["Subject"] = subject
	binding["BaseURL"] = r.baseURL

	var buf bytes.Buffer
	if err := r.engine.Render(&buf, name, binding, "layout"); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
