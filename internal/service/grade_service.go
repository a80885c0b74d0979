package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	"github.com/sotesting/sotesting-api/internal/dto"
	"github.com/sotesting/sotesting-api/internal/models"
	"github.com/sotesting/sotesting-api/internal/observability"
	"github.com/sotesting/sotesting-api/internal/repository"
)

// EventPublisher is satisfied by *nats.Conn.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// GradeConfig configures caching and event fan-out for grades.
type GradeConfig struct {
	CacheTTL     time.Duration
	EventSubject string
}

// GradeService runs official grading and reports team totals.
type GradeService interface {
	Grade(ctx context.Context, teamName string, question int) (dto.QuestionGradeResponse, error)
	Summary(ctx context.Context, teamName string) (dto.TeamGradeSummary, error)
}

type gradeService struct {
	teams       repository.TeamRepository
	grades      repository.GradeRepository
	submissions SubmissionService
	cache       *redis.Client
	events      EventPublisher
	cfg         GradeConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradeService constructs the grading service. cache and events are optional.
func NewGradeService(teams repository.TeamRepository, grades repository.GradeRepository, submissions SubmissionService, cache *redis.Client, events EventPublisher, cfg GradeConfig, logger zerolog.Logger) GradeService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	return &gradeService{
		teams:       teams,
		grades:      grades,
		submissions: submissions,
		cache:       cache,
		events:      events,
		cfg:         cfg,
		logger:      logger.With().Str("component", "grade_service").Logger(),
		now:         time.Now,
	}
}

// Grade runs the hidden cases for the team's stored submission and records
// the result as the question's grade, replacing any earlier one.
func (s *gradeService) Grade(ctx context.Context, teamName string, question int) (dto.QuestionGradeResponse, error) {
	tracer := otel.Tracer("github.com/sotesting/sotesting-api/internal/service/grade")
	ctx, span := tracer.Start(ctx, "grade.run")
	span.SetAttributes(
		attribute.String("grade.team", teamName),
		attribute.Int("grade.question", question),
	)
	defer span.End()

	team, err := s.teams.GetByName(ctx, teamName)
	if err != nil {
		err = mapTeamErr(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "team_lookup_failed")
		return dto.QuestionGradeResponse{}, err
	}

	tests, err := s.submissions.RunScoring(ctx, team.Name, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring_failed")
		return dto.QuestionGradeResponse{}, err
	}

	score, maxScore := 0, 0
	for _, test := range tests {
		score += test.Score
		maxScore += test.MaxScore
	}

	encoded, err := json.Marshal(tests)
	if err != nil {
		return dto.QuestionGradeResponse{}, err
	}

	grade := models.QuestionGrade{
		TeamID:      team.ID,
		QuestionNum: question,
		Score:       score,
		MaxScore:    maxScore,
		Tests:       datatypes.JSON(encoded),
		GradedAt:    s.now().UTC(),
	}
	if err := s.grades.Upsert(ctx, &grade); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_persist_failed")
		return dto.QuestionGradeResponse{}, err
	}

	s.invalidate(ctx, team.Name)
	s.publish(dto.GradeEvent{
		ID:          uuid.NewString(),
		TeamName:    team.Name,
		QuestionNum: question,
		Score:       score,
		MaxScore:    maxScore,
		GradedAt:    grade.GradedAt,
	})

	span.SetAttributes(attribute.Int("grade.score", score), attribute.Int("grade.max_score", maxScore))
	s.logger.Info().
		Str("team", team.Name).
		Int("question", question).
		Int("score", score).
		Int("max_score", maxScore).
		Msg("question graded")

	return dto.QuestionGradeResponse{
		TeamName:    team.Name,
		QuestionNum: question,
		Score:       score,
		MaxScore:    maxScore,
		Tests:       tests,
		GradedAt:    grade.GradedAt,
	}, nil
}

func (s *gradeService) Summary(ctx context.Context, teamName string) (dto.TeamGradeSummary, error) {
	cacheKey := summaryCacheKey(teamName)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var summary dto.TeamGradeSummary
			if unmarshalErr := json.Unmarshal([]byte(cached), &summary); unmarshalErr == nil {
				observability.GradeSummaryCache().WithLabelValues("hit").Inc()
				return summary, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read grade summary cache")
		}
		observability.GradeSummaryCache().WithLabelValues("miss").Inc()
	}

	team, err := s.teams.GetByName(ctx, teamName)
	if err != nil {
		return dto.TeamGradeSummary{}, mapTeamErr(err)
	}

	grades, err := s.grades.ListByTeam(ctx, team.ID)
	if err != nil {
		return dto.TeamGradeSummary{}, err
	}

	summary := dto.TeamGradeSummary{
		TeamName:  team.Name,
		Questions: make([]dto.QuestionTotal, 0, len(grades)),
	}
	for _, grade := range grades {
		summary.Score += grade.Score
		summary.MaxScore += grade.MaxScore
		summary.Questions = append(summary.Questions, dto.NewQuestionTotal(grade))
	}

	if s.cache != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cfg.CacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store grade summary cache")
			}
		}
	}

	return summary, nil
}

func (s *gradeService) invalidate(ctx context.Context, teamName string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryCacheKey(teamName)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("team", teamName).Msg("failed to invalidate grade summary cache")
	}
}

func (s *gradeService) publish(event dto.GradeEvent) {
	if s.events == nil || s.cfg.EventSubject == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.events.Publish(s.cfg.EventSubject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", s.cfg.EventSubject).Msg("failed to publish grade event")
	}
}

func summaryCacheKey(teamName string) string {
	return fmt.Sprintf("grades:summary:v1:%s", teamName)
}
