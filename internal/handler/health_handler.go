package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sotesting/sotesting-api/internal/config"
	"github.com/sotesting/sotesting-api/internal/utils"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// HealthCheck returns a handler that reports application health and the state
// of each registered dependency. A failing dependency marks the status
// degraded; the endpoint still answers 200.
func HealthCheck(cfg config.Config, checks map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(checks) > 0 {
			payload.Checks = make(map[string]string, len(checks))
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			for name, ping := range checks {
				if err := ping(ctx); err != nil {
					payload.Checks[name] = err.Error()
					payload.Status = "degraded"
					continue
				}
				payload.Checks[name] = "ok"
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
