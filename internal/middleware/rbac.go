package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sotesting/sotesting-api/internal/utils"
)

// RequireRole ensures that the authenticated caller possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role := normalizeRole(c.Locals("user_role"))
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// RequireTeam rejects callers whose token does not identify a team.
func RequireTeam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals("team_id").(uint); !ok || id == 0 {
			return utils.SendError(c, fiber.StatusForbidden, "team token required")
		}
		return c.Next()
	}
}
