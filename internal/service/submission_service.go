package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sotesting/sotesting-api/internal/dto"
	"github.com/sotesting/sotesting-api/internal/observability"
	"github.com/sotesting/sotesting-api/internal/repository"
	"github.com/sotesting/sotesting-api/pkg/judge"
)

// SubmissionService stores team code and runs it against the judge.
type SubmissionService interface {
	Store(ctx context.Context, teamName string, payload dto.SubmissionRequest) (dto.SubmissionStoredResponse, error)
	RunFeedback(ctx context.Context, teamName string, question int) (dto.ConsoleLog, error)
	RunScoring(ctx context.Context, teamName string, question int) ([]dto.ScoredTest, error)
	StoreAndRun(ctx context.Context, teamName string, payload dto.SubmissionRequest) (dto.ConsoleLog, error)
}

// SubmissionConfig tunes submission handling.
type SubmissionConfig struct {
	MaxBytes int
}

type submissionService struct {
	files       repository.SubmissionFileRepository
	builder     ArchiveBuilder
	judge       judge.Dispatcher
	interpreter *ResultInterpreter
	validator   *validator.Validate
	cfg         SubmissionConfig
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(files repository.SubmissionFileRepository, builder ArchiveBuilder, dispatcher judge.Dispatcher, interpreter *ResultInterpreter, validate *validator.Validate, cfg SubmissionConfig, logger zerolog.Logger) SubmissionService {
	if interpreter == nil {
		interpreter = NewResultInterpreter()
	}
	return &submissionService{
		files:       files,
		builder:     builder,
		judge:       dispatcher,
		interpreter: interpreter,
		validator:   validate,
		cfg:         cfg,
		tracer:      otel.Tracer("github.com/sotesting/sotesting-api/internal/service/submission"),
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

// Store overwrites the team's submission for the question.
func (s *submissionService) Store(ctx context.Context, teamName string, payload dto.SubmissionRequest) (dto.SubmissionStoredResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.store", trace.WithAttributes(
		attribute.String("submission.team", teamName),
		attribute.Int("submission.question", payload.QuestionNum),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionStoredResponse{}, err
	}

	contents := []byte(payload.FileContents)
	if err := s.checkContents(contents); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "contents_rejected")
		return dto.SubmissionStoredResponse{}, err
	}

	if err := s.files.Save(ctx, teamName, payload.QuestionNum, contents); err != nil {
		if errors.Is(err, repository.ErrInvalidTeamName) {
			err = fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "save_failed")
		return dto.SubmissionStoredResponse{}, err
	}

	observability.SubmissionsStored().Inc()
	s.logger.Info().
		Str("team", teamName).
		Int("question", payload.QuestionNum).
		Int("bytes", len(contents)).
		Msg("submission stored")

	return dto.SubmissionStoredResponse{
		TeamName:    teamName,
		QuestionNum: payload.QuestionNum,
		SizeBytes:   len(contents),
	}, nil
}

func (s *submissionService) checkContents(contents []byte) error {
	if s.cfg.MaxBytes > 0 && len(contents) > s.cfg.MaxBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidSubmission, s.cfg.MaxBytes)
	}

	detected := mimetype.Detect(contents)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	return fmt.Errorf("%w: expected python source, got %s", ErrInvalidSubmission, detected.String())
}

// RunFeedback runs the demo cases against the stored submission.
func (s *submissionService) RunFeedback(ctx context.Context, teamName string, question int) (dto.ConsoleLog, error) {
	report, err := s.run(ctx, teamName, question, ModeFeedback)
	if err != nil {
		return dto.ConsoleLog{}, err
	}
	return s.interpreter.ConsoleLog(report), nil
}

// RunScoring runs the hidden cases against the stored submission.
func (s *submissionService) RunScoring(ctx context.Context, teamName string, question int) ([]dto.ScoredTest, error) {
	report, err := s.run(ctx, teamName, question, ModeScoring)
	if err != nil {
		return nil, err
	}

	scored, err := s.interpreter.ScoredTests(report)
	if err != nil {
		observability.GradingRuns().WithLabelValues(string(ModeScoring), "malformed_report").Inc()
		s.logger.Error().Err(err).Str("team", teamName).Int("question", question).Msg("judge report has malformed scores")
		return nil, err
	}
	return scored, nil
}

// StoreAndRun stores the upload and immediately runs the feedback cases.
func (s *submissionService) StoreAndRun(ctx context.Context, teamName string, payload dto.SubmissionRequest) (dto.ConsoleLog, error) {
	if _, err := s.Store(ctx, teamName, payload); err != nil {
		return dto.ConsoleLog{}, err
	}
	return s.RunFeedback(ctx, teamName, payload.QuestionNum)
}

func (s *submissionService) run(ctx context.Context, teamName string, question int, mode Mode) (judge.Report, error) {
	ctx, span := s.tracer.Start(ctx, "submission.run", trace.WithAttributes(
		attribute.String("submission.team", teamName),
		attribute.Int("submission.question", question),
		attribute.String("submission.mode", string(mode)),
	))
	defer span.End()

	archive, err := s.builder.Build(ctx, teamName, question, mode)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrResourceNotFound) {
			outcome = "not_found"
		}
		observability.GradingRuns().WithLabelValues(string(mode), outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return judge.Report{}, err
	}

	report, err := s.judge.Dispatch(ctx, archive)
	if err != nil {
		observability.GradingRuns().WithLabelValues(string(mode), "judge_unavailable").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "judge_unavailable")
		s.logger.Warn().Err(err).Str("team", teamName).Int("question", question).Str("mode", string(mode)).Msg("judge run failed")
		return judge.Report{}, err
	}

	observability.GradingRuns().WithLabelValues(string(mode), "ok").Inc()
	span.SetAttributes(attribute.Int("submission.tests", len(report.Tests)))
	s.logger.Info().
		Str("team", teamName).
		Int("question", question).
		Str("mode", string(mode)).
		Int("tests", len(report.Tests)).
		Msg("judge run completed")

	return report, nil
}
