package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sotesting/sotesting-api/internal/dto"
	"github.com/sotesting/sotesting-api/internal/service"
	"github.com/sotesting/sotesting-api/internal/utils"
)

// TeamHandler serves the authenticated team's own profile and members.
type TeamHandler struct {
	service service.TeamService
	logger  zerolog.Logger
}

// NewTeamHandler constructs a TeamHandler.
func NewTeamHandler(service service.TeamService, logger zerolog.Logger) *TeamHandler {
	return &TeamHandler{
		service: service,
		logger:  logger.With().Str("component", "team_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *TeamHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
	router.Get("/members", h.listMembers)
	router.Post("/members", h.addMember)
	router.Delete("/members/:id", h.deleteMember)
}

func (h *TeamHandler) me(c *fiber.Ctx) error {
	team, err := h.service.Get(c.UserContext(), teamIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "team retrieved", team)
}

func (h *TeamHandler) listMembers(c *fiber.Ctx) error {
	members, err := h.service.ListMembers(c.UserContext(), teamIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "team members retrieved", members)
}

func (h *TeamHandler) addMember(c *fiber.Ctx) error {
	var payload dto.TeamMemberCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	member, err := h.service.AddMember(c.UserContext(), teamIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "team member added", member)
}

func (h *TeamHandler) deleteMember(c *fiber.Ctx) error {
	memberID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.DeleteMember(c.UserContext(), teamIDFromContext(c), memberID); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "team member removed", nil)
}

func (h *TeamHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTeamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "team not found")
	case errors.Is(err, service.ErrTeamMemberNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "team member not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
