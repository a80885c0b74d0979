package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sotesting/sotesting-api/internal/config"
	"github.com/sotesting/sotesting-api/internal/handler"
	"github.com/sotesting/sotesting-api/internal/middleware"
	"github.com/sotesting/sotesting-api/internal/observability"
	"github.com/sotesting/sotesting-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	TeamHandler         *handler.TeamHandler
	SubmissionHandler   *handler.SubmissionHandler
	AdminTeamHandler    *handler.AdminTeamHandler
	AdminGradingHandler *handler.AdminGradingHandler
	HealthChecks        map[string]handler.Pinger
	JWTMiddleware       fiber.Handler
	SubmitRateLimit     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	rateLimit := deps.SubmitRateLimit
	if rateLimit == nil {
		rateLimit = func(c *fiber.Ctx) error { return c.Next() }
	}

	teamOnly := []fiber.Handler{jwtMiddleware, middleware.RequireRole(service.RoleTeam), middleware.RequireTeam()}

	if deps.TeamHandler != nil {
		deps.TeamHandler.Register(api.Group("/teams", teamOnly...))
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", append(teamOnly, rateLimit)...)
		deps.SubmissionHandler.Register(submissions)
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(service.RoleAdmin))

	if deps.AdminTeamHandler != nil {
		deps.AdminTeamHandler.Register(admin.Group("/teams"))
	}

	if deps.AdminGradingHandler != nil {
		deps.AdminGradingHandler.Register(admin.Group("/grades"))
	}
}
