package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/sotesting/sotesting-api/internal/config"
	"github.com/sotesting/sotesting-api/internal/database"
	"github.com/sotesting/sotesting-api/internal/models"
	"github.com/sotesting/sotesting-api/internal/repository"
	"github.com/sotesting/sotesting-api/internal/service"
	"github.com/sotesting/sotesting-api/internal/teamimport"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cmd := &cli.Command{
		Name:  "teamimport",
		Usage: "sync the team table with a roster CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "roster CSV (Team Number,Password,Start Time,End Time)",
				Value:   "es_files/teams.csv",
			},
			&cli.StringFlag{
				Name:    "words",
				Aliases: []string{"w"},
				Usage:   "word list used to generate missing passwords",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "fill and sort the roster without touching the database",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, logger)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Fatal().Err(err).Msg("team import failed")
	}
}

func run(ctx context.Context, cmd *cli.Command, logger zerolog.Logger) error {
	path := cmd.String("file")

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read roster: %w", err)
	}
	rows, err := teamimport.Read(bytes.NewReader(source))
	if err != nil {
		return err
	}

	var words []string
	if wordsPath := cmd.String("words"); wordsPath != "" {
		if words, err = teamimport.LoadWords(wordsPath); err != nil {
			return fmt.Errorf("read word list: %w", err)
		}
	}
	generated, err := teamimport.NewPasswordGenerator(words).Fill(rows)
	if err != nil {
		return fmt.Errorf("generate passwords: %w", err)
	}

	if !cmd.Bool("dry-run") {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := db.AutoMigrate(&models.Team{}, &models.TeamMember{}, &models.QuestionGrade{}); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		teams := service.NewTeamService(repository.NewTeamRepository(db), validator.New(validator.WithRequiredStructEnabled()), logger)
		result, err := teams.Import(ctx, teamimport.Requests(rows))
		if err != nil {
			return err
		}
		logger.Info().
			Int("created", result.Created).
			Int("updated", result.Updated).
			Int("deleted", result.Deleted).
			Msg("teams synced")
	}

	teamimport.Sort(rows)
	var out bytes.Buffer
	if err := teamimport.Write(&out, rows); err != nil {
		return err
	}
	if err := os.WriteFile(path, out.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}

	logger.Info().Str("file", path).Int("teams", len(rows)).Int("passwords_generated", generated).Msg("roster saved")
	return nil
}
