package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sotesting/sotesting-api/internal/config"
	"github.com/sotesting/sotesting-api/internal/dto"
	"github.com/sotesting/sotesting-api/internal/handler"
	"github.com/sotesting/sotesting-api/internal/models"
	"github.com/sotesting/sotesting-api/internal/repository"
	"github.com/sotesting/sotesting-api/internal/router"
	"github.com/sotesting/sotesting-api/internal/service"
	"github.com/sotesting/sotesting-api/pkg/judge"
)

const judgeStdout = `{"tests":[{"name":"t1 adds","status":"passed","score":2,"max_score":2},{"name":"t2 subtracts","status":"failed","score":0,"max_score":3,"output":"AssertionError: 1 != 2\n"}]}`

func newFakeJudge(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AdditionalFiles string `json:"additional_files"`
			LanguageID      int    `json:"language_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AdditionalFiles == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"stdout": judgeStdout,
			"status": map[string]interface{}{"id": 3, "description": "Accepted"},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

type testServer struct {
	app   *fiber.App
	teams service.TeamService
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	log := zerolog.Nop()
	root := t.TempDir()

	db, err := gorm.Open(sqlite.Open("file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Team{}, &models.TeamMember{}, &models.QuestionGrade{}))

	cfg := config.Config{
		AppName:        "sotest",
		AppEnv:         "test",
		JWTSecret:      "router-secret",
		JWTTTL:         time.Hour,
		AdminName:      "admin",
		AdminPassword:  "root-pass",
		UtilitiesDir:   filepath.Join(root, "utils"),
		QuestionsDir:   filepath.Join(root, "questions"),
		SubmissionsDir: filepath.Join(root, "submissions"),
	}
	for path, contents := range map[string]string{
		filepath.Join(cfg.UtilitiesDir, "run_tests.py"):        "print('harness')\n",
		filepath.Join(cfg.QuestionsDir, "q1", "demo_cases.py"): "DEMO = 1\n",
		filepath.Join(cfg.QuestionsDir, "q1", "test_cases.py"): "HIDDEN = 1\n",
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	redisServer, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(redisServer.Close)
	cache := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})

	judgeClient, err := judge.NewClient(judge.Config{BaseURL: newFakeJudge(t).URL, LanguageID: 89, Timeout: 5 * time.Second})
	require.NoError(t, err)

	validate := validator.New(validator.WithRequiredStructEnabled())
	teamRepo := repository.NewTeamRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	files := repository.NewSubmissionFileRepository(cfg.SubmissionsDir)

	teams := service.NewTeamService(teamRepo, validate, log)
	auth := service.NewAuthService(teams, validate, service.AuthConfig{
		Secret:        cfg.JWTSecret,
		TTL:           cfg.JWTTTL,
		AdminName:     cfg.AdminName,
		AdminPassword: cfg.AdminPassword,
	}, log)
	builder := service.NewArchiveBuilder(service.ArchiveConfig{UtilitiesDir: cfg.UtilitiesDir, QuestionsDir: cfg.QuestionsDir}, files, log)
	submissions := service.NewSubmissionService(files, builder, judgeClient, service.NewResultInterpreter(), validate, service.SubmissionConfig{MaxBytes: 4096}, log)
	grades := service.NewGradeService(teamRepo, gradeRepo, submissions, cache, nil, service.GradeConfig{CacheTTL: time.Minute}, log)

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(auth, log),
		TeamHandler:         handler.NewTeamHandler(teams, log),
		SubmissionHandler:   handler.NewSubmissionHandler(teams, submissions, log),
		AdminTeamHandler:    handler.NewAdminTeamHandler(teams, log),
		AdminGradingHandler: handler.NewAdminGradingHandler(grades, log),
	})

	return testServer{app: app, teams: teams}
}

func (s testServer) do(t *testing.T, method, path, token, body string) (*http.Response, json.RawMessage) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON || strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	}
	return resp, envelope.Data
}

func (s testServer) login(t *testing.T, name, password string) string {
	t.Helper()
	resp, data := s.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"name":"`+name+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(data, &login))
	return login.AccessToken
}

func TestSubmissionLifecycle(t *testing.T) {
	server := newTestServer(t)
	_, err := server.teams.Create(context.Background(), dto.TeamRequest{Name: "team01", Password: "otter"})
	require.NoError(t, err)

	token := server.login(t, "team01", "otter")

	resp, _ := server.do(t, http.MethodPost, "/api/v1/submissions/1/feedback", token, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = server.do(t, http.MethodPost, "/api/v1/submissions", token, `{"question_num":1,"file_contents":"def add(a, b):\n    return a + b\n"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, data := server.do(t, http.MethodPost, "/api/v1/submissions/1/feedback", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var log dto.ConsoleLog
	require.NoError(t, json.Unmarshal(data, &log))
	require.Equal(t, service.FeedbackDisclaimer+"t1 passed!\nt2 AssertionError: 1 != 2", log.ConsoleLog)

	adminToken := server.login(t, "admin", "root-pass")
	resp, data = server.do(t, http.MethodPost, "/api/v1/admin/grades/team01/1", adminToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var grade dto.QuestionGradeResponse
	require.NoError(t, json.Unmarshal(data, &grade))
	require.Equal(t, 2, grade.Score)
	require.Equal(t, 5, grade.MaxScore)

	resp, data = server.do(t, http.MethodGet, "/api/v1/admin/grades/team01", adminToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary dto.TeamGradeSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	require.Len(t, summary.Questions, 1)
	require.Equal(t, 2, summary.Score)
}

func TestRouteAuthorization(t *testing.T) {
	server := newTestServer(t)
	_, err := server.teams.Create(context.Background(), dto.TeamRequest{Name: "team01", Password: "otter"})
	require.NoError(t, err)

	teamToken := server.login(t, "team01", "otter")
	adminToken := server.login(t, "admin", "root-pass")

	cases := []struct {
		method string
		path   string
		token  string
		status int
	}{
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/teams/me", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/teams/me", teamToken, http.StatusOK},
		{http.MethodGet, "/api/v1/teams/me", adminToken, http.StatusForbidden},
		{http.MethodGet, "/api/v1/admin/teams", teamToken, http.StatusForbidden},
		{http.MethodGet, "/api/v1/admin/teams", adminToken, http.StatusOK},
		{http.MethodGet, "/api/v1/admin/teams/name/team01", adminToken, http.StatusOK},
	}
	for _, tc := range cases {
		resp, _ := server.do(t, tc.method, tc.path, tc.token, "")
		require.Equal(t, tc.status, resp.StatusCode, "%s %s", tc.method, tc.path)
	}

	resp, _ := server.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"name":"team01","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
