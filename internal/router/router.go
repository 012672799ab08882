package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lms-progress-api/internal/config"
	"github.com/noah-isme/lms-progress-api/internal/handler"
	"github.com/noah-isme/lms-progress-api/internal/middleware"
	"github.com/noah-isme/lms-progress-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProgressHandler *handler.ProgressHandler
	QuizHandler     *handler.QuizHandler
	HealthProbes    map[string]handler.HealthProbe
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group(cfg.APIBasePath, func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	requireUser := middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.Next()
	}, middleware.AuthOptions{Role: middleware.AuthRoleAny})

	if deps.ProgressHandler != nil {
		progress := api.Group("/progress", jwtMiddleware, requireUser)
		deps.ProgressHandler.Register(progress)

		admin := api.Group("/admin/progress", jwtMiddleware, middleware.RequireRole(middleware.StaffRoles...))
		deps.ProgressHandler.RegisterAdmin(admin)
	}

	if deps.QuizHandler != nil {
		lessons := api.Group("/lessons", jwtMiddleware, requireUser)
		deps.QuizHandler.Register(lessons)
	}
}
