package handler

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sotesting/sotesting-api/internal/dto"
	"github.com/sotesting/sotesting-api/internal/service"
	"github.com/sotesting/sotesting-api/internal/utils"
	"github.com/sotesting/sotesting-api/pkg/judge"
)

// SubmissionHandler exposes submission storage and feedback runs to teams.
type SubmissionHandler struct {
	teams       service.TeamService
	submissions service.SubmissionService
	logger      zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(teams service.TeamService, submissions service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		teams:       teams,
		submissions: submissions,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("", h.store)
	router.Post("/run", h.storeAndRun)
	router.Post("/:question/feedback", h.feedback)
}

func (h *SubmissionHandler) store(c *fiber.Ctx) error {
	payload, err := parseSubmission(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	team, err := h.teams.EnsureWithinSchedule(c.UserContext(), teamIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	stored, err := h.submissions.Store(c.UserContext(), team.Name, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission stored", stored)
}

func (h *SubmissionHandler) storeAndRun(c *fiber.Ctx) error {
	payload, err := parseSubmission(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	team, err := h.teams.EnsureWithinSchedule(c.UserContext(), teamIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	log, err := h.submissions.StoreAndRun(c.UserContext(), team.Name, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission stored and run", log)
}

func (h *SubmissionHandler) feedback(c *fiber.Ctx) error {
	question, err := parseQuestionParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	team, err := h.teams.EnsureWithinSchedule(c.UserContext(), teamIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	log, err := h.submissions.RunFeedback(c.UserContext(), team.Name, question)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "feedback run completed", log)
}

// parseSubmission accepts either a JSON body or a multipart form with a
// question_num field and a file part.
func parseSubmission(c *fiber.Ctx) (dto.SubmissionRequest, error) {
	var payload dto.SubmissionRequest

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		question, err := strconv.Atoi(strings.TrimSpace(c.FormValue("question_num")))
		if err != nil {
			return payload, errors.New("question_num must be an integer")
		}
		payload.QuestionNum = question

		header, err := c.FormFile("file")
		if err != nil {
			payload.FileContents = c.FormValue("file_contents")
			return payload, nil
		}
		file, err := header.Open()
		if err != nil {
			return payload, errors.New("unable to read uploaded file")
		}
		defer file.Close()
		contents, err := io.ReadAll(file)
		if err != nil {
			return payload, errors.New("unable to read uploaded file")
		}
		payload.FileContents = string(contents)
		return payload, nil
	}

	if err := c.BodyParser(&payload); err != nil {
		return payload, errors.New("invalid request body")
	}
	return payload, nil
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrInvalidSubmission):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrOutsideSchedule):
		return utils.SendErrorCode(c, fiber.StatusForbidden, utils.CodeOutsideSchedule, err.Error())
	case errors.Is(err, service.ErrTeamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "team not found")
	case errors.Is(err, service.ErrResourceNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, utils.CodeResourceNotFound, err.Error())
	case errors.Is(err, judge.ErrUnavailable):
		requestLogger(h.logger, c).Warn().Err(err).Msg("judge unavailable")
		return utils.SendErrorCode(c, fiber.StatusServiceUnavailable, utils.CodeJudgeUnavailable, "the grading system is unavailable, please try again")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
