package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "progress-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newJWTApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":   c.Locals(LocalUserID),
			"role": c.Locals(LocalUserRole),
		})
	})
	return app
}

func TestJWTProtectedPopulatesLocals(t *testing.T) {
	app := newJWTApp()
	token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "42",
		"roles": []interface{}{"Teacher"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	}
	decodeJSON(t, resp, &payload)
	require.Equal(t, uint(42), payload.ID)
	require.Equal(t, "teacher", payload.Role)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := newJWTApp()

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty bearer", header: "Bearer "},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{
			name: "expired token",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": 1,
				"exp": time.Now().Add(-time.Minute).Unix(),
			}),
		},
		{
			name:   "missing subject",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"role": "student"}),
		},
		{
			name:   "negative subject",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": -3}),
		},
		{
			name:   "foreign signing method",
			header: "Bearer " + unsigned,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func decodeJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
