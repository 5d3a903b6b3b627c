package usercontext

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	app := fiber.New()
	var anon, got UserContext
	app.Get("/", func(c *fiber.Ctx) error {
		anon = GetUserContext(c)
		Set(c, UserContext{UserID: "u1", Username: "ann", IsLoggedIn: true, IsAdmin: true, Plan: "pro"})
		got = GetUserContext(c)
		assert.True(t, IsLoggedIn(c))
		assert.True(t, IsAdmin(c))
		assert.Equal(t, "u1", GetUserID(c))
		assert.Equal(t, "ann", GetUsername(c))
		assert.Equal(t, true, c.Locals(KeyFromProtected))
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.False(t, anon.IsLoggedIn)
	assert.Equal(t, "free", anon.Plan)
	assert.Equal(t, "pro", got.Plan)
}
