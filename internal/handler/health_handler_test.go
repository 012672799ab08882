package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-progress-api/internal/config"
	"github.com/noah-isme/lms-progress-api/internal/handler"
)

func TestHealthCheckReportsProbes(t *testing.T) {
	cfg := config.Config{AppName: "LMS Progress API", AppEnv: "test"}
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		probes     map[string]handler.HealthProbe
		wantStatus int
		wantState  string
		wantDeps   map[string]string
	}{
		{name: "no probes", wantStatus: http.StatusOK, wantState: "ok"},
		{
			name:       "all up",
			probes:     map[string]handler.HealthProbe{"database": healthy, "redis": healthy},
			wantStatus: http.StatusOK,
			wantState:  "ok",
			wantDeps:   map[string]string{"database": "up", "redis": "up"},
		},
		{
			name:       "redis down",
			probes:     map[string]handler.HealthProbe{"database": healthy, "redis": broken},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "degraded",
			wantDeps:   map[string]string{"database": "up", "redis": "down"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", handler.HealthCheck(cfg, tc.probes))

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.wantStatus, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			var payload struct {
				Success bool                   `json:"success"`
				Data    handler.HealthResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(raw, &payload))
			require.True(t, payload.Success)
			require.Equal(t, tc.wantState, payload.Data.Status)
			require.Equal(t, "LMS Progress API", payload.Data.Service)
			if tc.wantDeps == nil {
				require.Empty(t, payload.Data.Dependencies)
				return
			}
			require.Equal(t, tc.wantDeps, payload.Data.Dependencies)
		})
	}
}
