package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/usercontext"
)

// newTestApp returns an app whose requests are signed in as the user named
// in the X-Test-User header, on the plan in X-Test-Plan.
func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			usercontext.Set(c, usercontext.UserContext{
				UserID:     id,
				Username:   id,
				Email:      id + "@example.com",
				IsLoggedIn: true,
				IsAdmin:    c.Get("X-Test-Admin") == "1",
				Plan:       c.Get("X-Test-Plan", "free"),
			})
		}
		return c.Next()
	})
	return app
}

type testRequest struct {
	method  string
	path    string
	body    interface{}
	raw     []byte
	user    string
	plan    string
	headers map[string]string
}

func do(t *testing.T, app *fiber.App, r testRequest) *http.Response {
	t.Helper()
	var body io.Reader
	switch {
	case r.raw != nil:
		body = bytes.NewReader(r.raw)
	case r.body != nil:
		b, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if r.user != "" {
		req.Header.Set("X-Test-User", r.user)
	}
	if r.plan != "" {
		req.Header.Set("X-Test-Plan", r.plan)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
