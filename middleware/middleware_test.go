package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayAuthMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("secret"))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "Bearer nope", fiber.StatusUnauthorized},
		{"bearer", "Bearer secret", fiber.StatusOK},
		{"raw", "secret", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestUserContextMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(UserContextMiddleware())
	app.Get("/me", func(c *fiber.Ctx) error {
		roles, _ := c.Locals(LocalUserRoles).([]string)
		return c.JSON(fiber.Map{"user": UserID(c), "roles": roles})
	})

	req := httptest.NewRequest("GET", "/me", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("X-User-ID", " user-1 ")
	req.Header.Set("X-User-Roles", "artist, ,admin")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimiter_PerKey(t *testing.T) {
	rl := NewPerMinuteLimiter(2)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, rl.allow("a", at))
	assert.True(t, rl.allow("a", at))
	assert.False(t, rl.allow("a", at))
	assert.True(t, rl.allow("b", at), "keys have separate buckets")

	// one token refills every 30s at 2/min
	assert.True(t, rl.allow("a", at.Add(31*time.Second)))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewPerMinuteLimiter(5)
	rl.allow("stale", time.Now().Add(-time.Hour))
	rl.allow("fresh", time.Now())

	rl.Cleanup(10 * time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.limiters, "stale")
	assert.Contains(t, rl.limiters, "fresh")
}

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewPerMinuteLimiter(1)
	app := fiber.New()
	app.Use(UserContextMiddleware())
	app.Post("/vote", rl.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	send := func(user string) int {
		req := httptest.NewRequest("POST", "/vote", nil)
		req.Header.Set("X-User-ID", user)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}
	assert.Equal(t, fiber.StatusCreated, send("u1"))
	assert.Equal(t, fiber.StatusTooManyRequests, send("u1"))
	assert.Equal(t, fiber.StatusCreated, send("u2"))
}
