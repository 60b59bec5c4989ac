package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"go-payroll/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(skipAuth bool) *fiber.App {
	app := fiber.New()
	app.Get("/who", AuthMiddleware(skipAuth), func(c *fiber.Ctx) error {
		return c.SendString(Principal(c))
	})
	app.Post("/admin", AuthMiddleware(skipAuth), RequireRole(RolePayrollAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	utils.SetSecret("middleware-test")
	admin, err := utils.GenerateToken("hr-1", []string{RolePayrollAdmin}, time.Hour)
	require.NoError(t, err)
	viewer, err := utils.GenerateToken("hr-2", []string{"viewer"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		skipAuth bool
		method   string
		path     string
		header   string
		want     int
	}{
		{"missing header", false, "GET", "/who", "", fiber.StatusUnauthorized},
		{"bad scheme", false, "GET", "/who", "Token abc", fiber.StatusUnauthorized},
		{"bad token", false, "GET", "/who", "Bearer nope", fiber.StatusUnauthorized},
		{"valid token", false, "GET", "/who", "Bearer " + admin, fiber.StatusOK},
		{"skip auth", true, "GET", "/who", "", fiber.StatusOK},
		{"role present", false, "POST", "/admin", "Bearer " + admin, fiber.StatusNoContent},
		{"role missing", false, "POST", "/admin", "Bearer " + viewer, fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := newTestApp(tt.skipAuth).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
