package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sotesting/sotesting-api/internal/config"
	"github.com/sotesting/sotesting-api/internal/database"
	"github.com/sotesting/sotesting-api/internal/handler"
	"github.com/sotesting/sotesting-api/internal/middleware"
	"github.com/sotesting/sotesting-api/internal/models"
	"github.com/sotesting/sotesting-api/internal/repository"
	"github.com/sotesting/sotesting-api/internal/router"
	"github.com/sotesting/sotesting-api/internal/service"
	"github.com/sotesting/sotesting-api/pkg/judge"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(&models.Team{}, &models.TeamMember{}, &models.QuestionGrade{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set; grade summaries are not cached")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	var events service.EventPublisher
	if natsConn != nil {
		defer natsConn.Drain()
		events = natsConn
	}

	judgeClient, err := judge.NewClient(judge.Config{
		BaseURL:    cfg.JudgeURL,
		LanguageID: cfg.JudgeLanguageID,
		Timeout:    cfg.JudgeTimeout,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create judge client")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	teamRepo := repository.NewTeamRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	submissionFiles := repository.NewSubmissionFileRepository(cfg.SubmissionsDir)

	teamService := service.NewTeamService(teamRepo, validate, logger)
	authService := service.NewAuthService(teamService, validate, service.AuthConfig{
		Secret:        cfg.JWTSecret,
		TTL:           cfg.JWTTTL,
		AdminName:     cfg.AdminName,
		AdminPassword: cfg.AdminPassword,
	}, logger)
	archiveBuilder := service.NewArchiveBuilder(service.ArchiveConfig{
		UtilitiesDir: cfg.UtilitiesDir,
		QuestionsDir: cfg.QuestionsDir,
	}, submissionFiles, logger)
	submissionService := service.NewSubmissionService(
		submissionFiles,
		archiveBuilder,
		judgeClient,
		service.NewResultInterpreter(),
		validate,
		service.SubmissionConfig{MaxBytes: cfg.MaxSubmissionKB * 1024},
		logger,
	)
	gradeService := service.NewGradeService(teamRepo, gradeRepo, submissionService, redisClient, events, service.GradeConfig{
		CacheTTL:     cfg.GradeSummaryTTL,
		EventSubject: cfg.EventSubject,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MaxSubmissionKB + 64) * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		TeamHandler:         handler.NewTeamHandler(teamService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(teamService, submissionService, logger),
		AdminTeamHandler:    handler.NewAdminTeamHandler(teamService, logger),
		AdminGradingHandler: handler.NewAdminGradingHandler(gradeService, logger),
		HealthChecks:        healthChecks(db, redisClient, natsConn),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		SubmitRateLimit:     middleware.RateLimit("submissions", cfg.SubmitRateLimit, cfg.SubmitRateInterval),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func healthChecks(db *gorm.DB, cache *redis.Client, conn *nats.Conn) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if cache != nil {
		checks["redis"] = func(ctx context.Context) error {
			return cache.Ping(ctx).Err()
		}
	}
	if conn != nil {
		checks["nats"] = func(context.Context) error {
			if !conn.IsConnected() {
				return errors.New(conn.Status().String())
			}
			return nil
		}
	}
	return checks
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
