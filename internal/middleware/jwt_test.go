package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/sotesting/sotesting-api/internal/middleware"
)

const testSecret = "middleware-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newJWTApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.JWTProtected(testSecret))
	app.Get("/", func(c *fiber.Ctx) error {
		teamID, _ := c.Locals("team_id").(uint)
		name, _ := c.Locals("team_name").(string)
		role, _ := c.Locals("user_role").(string)
		return c.JSON(fiber.Map{"team_id": teamID, "team_name": name, "role": role})
	})
	return app
}

func TestJWTProtectedTeamToken(t *testing.T) {
	app := newJWTApp()
	token := signToken(t, jwt.MapClaims{
		"sub":  "7",
		"name": "team07",
		"role": "team",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		TeamID   uint   `json:"team_id"`
		TeamName string `json:"team_name"`
		Role     string `json:"role"`
	}
	decodeBody(t, resp, &payload)
	require.Equal(t, uint(7), payload.TeamID)
	require.Equal(t, "team07", payload.TeamName)
	require.Equal(t, "team", payload.Role)
}

func TestJWTProtectedRejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "wrong secret", header: "Bearer " + signToken(t, jwt.MapClaims{"sub": "1", "role": "team", "exp": time.Now().Add(time.Hour).Unix()}, "other")},
		{name: "expired", header: "Bearer " + signToken(t, jwt.MapClaims{"sub": "1", "role": "team", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)},
		{name: "no expiry", header: "Bearer " + signToken(t, jwt.MapClaims{"sub": "1", "role": "team"}, testSecret)},
		{name: "no role", header: "Bearer " + signToken(t, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()}, testSecret)},
	}

	app := newJWTApp()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}
