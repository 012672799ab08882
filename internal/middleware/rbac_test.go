package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		role string
		want int
	}{
		{role: "admin", want: fiber.StatusOK},
		{role: "Instructor", want: fiber.StatusOK},
		{role: "student", want: fiber.StatusForbidden},
		{role: "", want: fiber.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run("role="+tc.role, func(t *testing.T) {
			app := fiber.New()
			app.Use(func(c *fiber.Ctx) error {
				if tc.role != "" {
					c.Locals(LocalUserRole, tc.role)
				}
				return c.Next()
			})
			app.Use(RequireRole(StaffRoles...))
			app.Post("/admin/progress/recompute", func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/admin/progress/recompute", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
