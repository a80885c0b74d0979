package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sotesting/sotesting-api/internal/dto"
	"github.com/sotesting/sotesting-api/internal/handler"
	"github.com/sotesting/sotesting-api/internal/models"
	"github.com/sotesting/sotesting-api/internal/service"
	"github.com/sotesting/sotesting-api/pkg/judge"
)

func newSubmissionApp(teams *stubTeamService, submissions *stubSubmissionService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/submissions", asTeam(teams.team.ID, teams.team.Name))
	handler.NewSubmissionHandler(teams, submissions, zerolog.Nop()).Register(group)
	return app
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return req
}

func TestSubmissionHandlerStoreJSON(t *testing.T) {
	teams := &stubTeamService{team: models.Team{ID: 3, Name: "team03"}}
	submissions := &stubSubmissionService{}
	app := newSubmissionApp(teams, submissions)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/submissions", `{"question_num":2,"file_contents":"print(1)\n"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	var stored dto.SubmissionStoredResponse
	require.NoError(t, json.Unmarshal(payload.Data, &stored))
	require.Equal(t, "team03", stored.TeamName)
	require.Equal(t, 2, stored.QuestionNum)
	require.Equal(t, "print(1)\n", submissions.stored[0].FileContents)
}

func TestSubmissionHandlerStoreMultipart(t *testing.T) {
	teams := &stubTeamService{team: models.Team{ID: 3, Name: "team03"}}
	submissions := &stubSubmissionService{}
	app := newSubmissionApp(teams, submissions)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("question_num", "4"))
	part, err := writer.CreateFormFile("file", "solution.py")
	require.NoError(t, err)
	_, err = part.Write([]byte("def f():\n    return 4\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, dto.SubmissionRequest{QuestionNum: 4, FileContents: "def f():\n    return 4\n"}, submissions.stored[0])
}

func TestSubmissionHandlerRunReturnsConsoleLog(t *testing.T) {
	teams := &stubTeamService{team: models.Team{ID: 3, Name: "team03"}}
	submissions := &stubSubmissionService{log: dto.ConsoleLog{ConsoleLog: service.FeedbackDisclaimer + "t1 passed!"}}
	app := newSubmissionApp(teams, submissions)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/submissions/run", `{"question_num":1,"file_contents":"x = 1\n"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	var log dto.ConsoleLog
	require.NoError(t, json.Unmarshal(payload.Data, &log))
	require.Equal(t, service.FeedbackDisclaimer+"t1 passed!", log.ConsoleLog)
	require.Equal(t, []int{1}, submissions.runs)
}

func TestSubmissionHandlerErrors(t *testing.T) {
	tests := []struct {
		name        string
		scheduleErr error
		runErr      error
		path        string
		status      int
		code        string
	}{
		{name: "outside window", scheduleErr: service.ErrOutsideSchedule, path: "/api/v1/submissions/1/feedback", status: http.StatusForbidden, code: "outside_schedule"},
		{name: "missing submission", runErr: fmt.Errorf("%w: submission of team team03 for question 1", service.ErrResourceNotFound), path: "/api/v1/submissions/1/feedback", status: http.StatusNotFound, code: "resource_not_found"},
		{name: "judge down", runErr: fmt.Errorf("%w: judge returned status 500", judge.ErrUnavailable), path: "/api/v1/submissions/1/feedback", status: http.StatusServiceUnavailable, code: "judge_unavailable"},
		{name: "malformed scores", runErr: judge.ErrMalformedScore, path: "/api/v1/submissions/1/feedback", status: http.StatusServiceUnavailable, code: "judge_unavailable"},
		{name: "bad question", path: "/api/v1/submissions/zero/feedback", status: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			teams := &stubTeamService{team: models.Team{ID: 3, Name: "team03"}, scheduleErr: tc.scheduleErr}
			submissions := &stubSubmissionService{runErr: tc.runErr}
			app := newSubmissionApp(teams, submissions)

			resp, err := app.Test(httptest.NewRequest(http.MethodPost, tc.path, nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			payload := decodeEnvelope(t, resp)
			require.False(t, payload.Success)
			require.Equal(t, tc.code, payload.Code)
		})
	}
}

func TestSubmissionHandlerRejectsInvalidUpload(t *testing.T) {
	teams := &stubTeamService{team: models.Team{ID: 3, Name: "team03"}}
	submissions := &stubSubmissionService{storeErr: fmt.Errorf("%w: expected python source", service.ErrInvalidSubmission)}
	app := newSubmissionApp(teams, submissions)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/submissions", `{"question_num":1,"file_contents":"x"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/submissions", `{"question_num":`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
