package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/sotesting/sotesting-api/internal/dto"
	"github.com/sotesting/sotesting-api/internal/models"
	"github.com/sotesting/sotesting-api/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func asTeam(id uint, name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("team_id", id)
		c.Locals("team_name", name)
		c.Locals("user_role", "team")
		return c.Next()
	}
}

// stubTeamService implements only what a test touches; other calls panic.
type stubTeamService struct {
	service.TeamService
	team        models.Team
	scheduleErr error
	members     []dto.TeamMemberResponse
	added       dto.TeamMemberCreateRequest
	deleteErr   error
}

func (s *stubTeamService) EnsureWithinSchedule(ctx context.Context, teamID uint) (models.Team, error) {
	if s.scheduleErr != nil {
		return models.Team{}, s.scheduleErr
	}
	return s.team, nil
}

func (s *stubTeamService) Get(ctx context.Context, id uint) (dto.TeamResponse, error) {
	if id != s.team.ID {
		return dto.TeamResponse{}, service.ErrTeamNotFound
	}
	return dto.NewTeamResponse(s.team), nil
}

func (s *stubTeamService) GetByName(ctx context.Context, name string) (dto.TeamResponse, error) {
	if name != s.team.Name {
		return dto.TeamResponse{}, service.ErrTeamNotFound
	}
	return dto.NewTeamResponse(s.team), nil
}

func (s *stubTeamService) List(ctx context.Context) ([]dto.TeamResponse, error) {
	return []dto.TeamResponse{dto.NewTeamResponse(s.team)}, nil
}

func (s *stubTeamService) ListMembers(ctx context.Context, teamID uint) ([]dto.TeamMemberResponse, error) {
	return s.members, nil
}

func (s *stubTeamService) AddMember(ctx context.Context, teamID uint, payload dto.TeamMemberCreateRequest) (dto.TeamMemberResponse, error) {
	s.added = payload
	return dto.TeamMemberResponse{ID: 1, TeamID: teamID, FirstName: payload.FirstName, LastName: payload.LastName}, nil
}

func (s *stubTeamService) DeleteMember(ctx context.Context, teamID, memberID uint) error {
	return s.deleteErr
}

type stubSubmissionService struct {
	stored   []dto.SubmissionRequest
	storeErr error
	log      dto.ConsoleLog
	runErr   error
	runs     []int
}

func (s *stubSubmissionService) Store(ctx context.Context, teamName string, payload dto.SubmissionRequest) (dto.SubmissionStoredResponse, error) {
	if s.storeErr != nil {
		return dto.SubmissionStoredResponse{}, s.storeErr
	}
	s.stored = append(s.stored, payload)
	return dto.SubmissionStoredResponse{TeamName: teamName, QuestionNum: payload.QuestionNum, SizeBytes: len(payload.FileContents)}, nil
}

func (s *stubSubmissionService) RunFeedback(ctx context.Context, teamName string, question int) (dto.ConsoleLog, error) {
	s.runs = append(s.runs, question)
	return s.log, s.runErr
}

func (s *stubSubmissionService) RunScoring(ctx context.Context, teamName string, question int) ([]dto.ScoredTest, error) {
	return nil, s.runErr
}

func (s *stubSubmissionService) StoreAndRun(ctx context.Context, teamName string, payload dto.SubmissionRequest) (dto.ConsoleLog, error) {
	if _, err := s.Store(ctx, teamName, payload); err != nil {
		return dto.ConsoleLog{}, err
	}
	return s.RunFeedback(ctx, teamName, payload.QuestionNum)
}
