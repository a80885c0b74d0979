package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sotesting/sotesting-api/internal/service"
	"github.com/sotesting/sotesting-api/internal/utils"
	"github.com/sotesting/sotesting-api/pkg/judge"
)

// AdminGradingHandler runs official grading and reports grade totals.
type AdminGradingHandler struct {
	service service.GradeService
	logger  zerolog.Logger
}

// NewAdminGradingHandler constructs the admin grading handler.
func NewAdminGradingHandler(service service.GradeService, logger zerolog.Logger) *AdminGradingHandler {
	return &AdminGradingHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_grading_handler").Logger(),
	}
}

// Register mounts the grading routes.
func (h *AdminGradingHandler) Register(router fiber.Router) {
	router.Post("/:team/:question", h.grade)
	router.Get("/:team", h.summary)
}

func (h *AdminGradingHandler) grade(c *fiber.Ctx) error {
	question, err := parseQuestionParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Grade(c.UserContext(), c.Params("team"), question)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question graded", result)
}

func (h *AdminGradingHandler) summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.UserContext(), c.Params("team"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "grades retrieved", summary)
}

func (h *AdminGradingHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrTeamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "team not found")
	case errors.Is(err, service.ErrResourceNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, utils.CodeResourceNotFound, err.Error())
	case errors.Is(err, judge.ErrUnavailable):
		requestLogger(h.logger, c).Warn().Err(err).Msg("judge unavailable during grading")
		return utils.SendErrorCode(c, fiber.StatusServiceUnavailable, utils.CodeJudgeUnavailable, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("grading failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
