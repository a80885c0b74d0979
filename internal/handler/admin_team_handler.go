package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sotesting/sotesting-api/internal/service"
	"github.com/sotesting/sotesting-api/internal/utils"
)

// AdminTeamHandler lets administrators look teams up.
type AdminTeamHandler struct {
	service service.TeamService
	logger  zerolog.Logger
}

// NewAdminTeamHandler constructs an AdminTeamHandler.
func NewAdminTeamHandler(service service.TeamService, logger zerolog.Logger) *AdminTeamHandler {
	return &AdminTeamHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_team_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AdminTeamHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/name/:name", h.getByName)
	router.Get("/:id", h.get)
}

func (h *AdminTeamHandler) list(c *fiber.Ctx) error {
	teams, err := h.service.List(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "teams retrieved", teams)
}

func (h *AdminTeamHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	team, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "team retrieved", team)
}

func (h *AdminTeamHandler) getByName(c *fiber.Ctx) error {
	team, err := h.service.GetByName(c.UserContext(), c.Params("name"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "team retrieved", team)
}

func (h *AdminTeamHandler) handleError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrTeamNotFound) {
		return utils.SendError(c, fiber.StatusNotFound, "team not found")
	}
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
