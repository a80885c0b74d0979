package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sotesting/sotesting-api/internal/dto"
	"github.com/sotesting/sotesting-api/internal/models"
	"github.com/sotesting/sotesting-api/internal/repository"
)

// TeamService manages competition teams and their members.
type TeamService interface {
	List(ctx context.Context) ([]dto.TeamResponse, error)
	Get(ctx context.Context, id uint) (dto.TeamResponse, error)
	GetByName(ctx context.Context, name string) (dto.TeamResponse, error)
	Authenticate(ctx context.Context, name, password string) (models.Team, error)
	Create(ctx context.Context, payload dto.TeamRequest) (dto.TeamResponse, error)
	Update(ctx context.Context, id uint, payload dto.TeamRequest) (dto.TeamResponse, error)
	Delete(ctx context.Context, id uint) error
	Import(ctx context.Context, rows []dto.TeamRequest) (dto.TeamImportResult, error)
	ListMembers(ctx context.Context, teamID uint) ([]dto.TeamMemberResponse, error)
	AddMember(ctx context.Context, teamID uint, payload dto.TeamMemberCreateRequest) (dto.TeamMemberResponse, error)
	DeleteMember(ctx context.Context, teamID, memberID uint) error
	EnsureWithinSchedule(ctx context.Context, teamID uint) (models.Team, error)
}

type teamService struct {
	repo      repository.TeamRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	cost      int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTeamService constructs the team service.
func NewTeamService(repo repository.TeamRepository, validate *validator.Validate, logger zerolog.Logger) TeamService {
	RegisterValidations(validate)
	return &teamService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		cost:      bcrypt.DefaultCost,
		logger:    logger.With().Str("component", "team_service").Logger(),
		now:       time.Now,
	}
}

// RegisterValidations adds the team validation tags to validate. The teamname
// tag accepts exactly the names the submission store can key files by.
func RegisterValidations(validate *validator.Validate) {
	_ = validate.RegisterValidation("teamname", func(fl validator.FieldLevel) bool {
		return repository.ValidTeamName(fl.Field().String())
	})
}

func (s *teamService) List(ctx context.Context) ([]dto.TeamResponse, error) {
	teams, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewTeamResponseSlice(teams), nil
}

func (s *teamService) Get(ctx context.Context, id uint) (dto.TeamResponse, error) {
	team, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.TeamResponse{}, mapTeamErr(err)
	}
	return dto.NewTeamResponse(team), nil
}

func (s *teamService) GetByName(ctx context.Context, name string) (dto.TeamResponse, error) {
	team, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return dto.TeamResponse{}, mapTeamErr(err)
	}
	return dto.NewTeamResponse(team), nil
}

// Authenticate returns the team whose name and password match. Every failure,
// unknown team included, is ErrInvalidCredentials.
func (s *teamService) Authenticate(ctx context.Context, name, password string) (models.Team, error) {
	team, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Team{}, ErrInvalidCredentials
		}
		return models.Team{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(team.PasswordHash), []byte(password)); err != nil {
		return models.Team{}, ErrInvalidCredentials
	}
	return team, nil
}

func (s *teamService) Create(ctx context.Context, payload dto.TeamRequest) (dto.TeamResponse, error) {
	team, err := s.buildTeam(models.Team{}, payload)
	if err != nil {
		return dto.TeamResponse{}, err
	}
	if err := s.repo.Create(ctx, &team); err != nil {
		return dto.TeamResponse{}, err
	}
	s.logger.Info().Str("team", team.Name).Msg("team created")
	return dto.NewTeamResponse(team), nil
}

func (s *teamService) Update(ctx context.Context, id uint, payload dto.TeamRequest) (dto.TeamResponse, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.TeamResponse{}, mapTeamErr(err)
	}
	team, err := s.buildTeam(existing, payload)
	if err != nil {
		return dto.TeamResponse{}, err
	}
	if err := s.repo.Update(ctx, &team); err != nil {
		return dto.TeamResponse{}, err
	}
	return dto.NewTeamResponse(team), nil
}

func (s *teamService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapTeamErr(err)
	}
	return nil
}

// Import makes the stored teams match rows: listed teams are created or
// updated, unlisted ones are deleted. Any failure leaves the roster untouched.
func (s *teamService) Import(ctx context.Context, rows []dto.TeamRequest) (dto.TeamImportResult, error) {
	var result dto.TeamImportResult
	err := s.repo.Transaction(ctx, func(repo repository.TeamRepository) error {
		tx := *s
		tx.repo = repo
		var err error
		result, err = tx.syncRoster(ctx, rows)
		return err
	})
	if err != nil {
		return dto.TeamImportResult{}, err
	}

	s.logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("deleted", result.Deleted).
		Msg("team roster imported")
	return result, nil
}

func (s *teamService) syncRoster(ctx context.Context, rows []dto.TeamRequest) (dto.TeamImportResult, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return dto.TeamImportResult{}, err
	}
	byName := make(map[string]models.Team, len(existing))
	for _, team := range existing {
		byName[team.Name] = team
	}

	var result dto.TeamImportResult
	listed := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		name := strings.TrimSpace(row.Name)
		listed[name] = struct{}{}

		if current, ok := byName[name]; ok {
			if _, err := s.Update(ctx, current.ID, row); err != nil {
				return result, fmt.Errorf("roster row %d (%s): %w", i+1, name, err)
			}
			result.Updated++
			continue
		}
		if _, err := s.Create(ctx, row); err != nil {
			return result, fmt.Errorf("roster row %d (%s): %w", i+1, name, err)
		}
		result.Created++
	}

	for _, team := range existing {
		if _, ok := listed[team.Name]; ok {
			continue
		}
		if err := s.repo.Delete(ctx, team.ID); err != nil {
			return result, err
		}
		result.Deleted++
	}
	return result, nil
}

func (s *teamService) buildTeam(team models.Team, payload dto.TeamRequest) (models.Team, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	payload.StartTime = strings.TrimSpace(payload.StartTime)
	payload.EndTime = strings.TrimSpace(payload.EndTime)
	if err := s.validator.Struct(payload); err != nil {
		return models.Team{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), s.cost)
	if err != nil {
		return models.Team{}, err
	}

	team.Name = payload.Name
	team.PasswordHash = string(hash)
	team.StartTime = normalizeClock(payload.StartTime)
	team.EndTime = normalizeClock(payload.EndTime)
	return team, nil
}

func (s *teamService) ListMembers(ctx context.Context, teamID uint) ([]dto.TeamMemberResponse, error) {
	members, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.TeamMemberResponse, 0, len(members))
	for _, member := range members {
		responses = append(responses, dto.NewTeamMemberResponse(member))
	}
	return responses, nil
}

func (s *teamService) AddMember(ctx context.Context, teamID uint, payload dto.TeamMemberCreateRequest) (dto.TeamMemberResponse, error) {
	payload.FirstName = strings.TrimSpace(s.sanitizer.Sanitize(payload.FirstName))
	payload.LastName = strings.TrimSpace(s.sanitizer.Sanitize(payload.LastName))
	if err := s.validator.Struct(payload); err != nil {
		return dto.TeamMemberResponse{}, err
	}

	if _, err := s.repo.GetByID(ctx, teamID); err != nil {
		return dto.TeamMemberResponse{}, mapTeamErr(err)
	}

	member := models.TeamMember{
		TeamID:    teamID,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	}
	if err := s.repo.CreateMember(ctx, &member); err != nil {
		return dto.TeamMemberResponse{}, err
	}
	return dto.NewTeamMemberResponse(member), nil
}

func (s *teamService) DeleteMember(ctx context.Context, teamID, memberID uint) error {
	if err := s.repo.DeleteMember(ctx, teamID, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamMemberNotFound
		}
		return err
	}
	return nil
}

// EnsureWithinSchedule loads the team and rejects it outside its testing window.
func (s *teamService) EnsureWithinSchedule(ctx context.Context, teamID uint) (models.Team, error) {
	team, err := s.repo.GetByID(ctx, teamID)
	if err != nil {
		return models.Team{}, mapTeamErr(err)
	}
	allowed, err := team.WithinSchedule(s.now())
	if err != nil {
		return models.Team{}, err
	}
	if !allowed {
		return models.Team{}, ErrOutsideSchedule
	}
	return team, nil
}

// normalizeClock zero-pads an already validated HH:MM value ("9:00" -> "09:00").
func normalizeClock(value string) string {
	parsed, err := time.Parse(models.ScheduleLayout, value)
	if err != nil {
		return value
	}
	return parsed.Format(models.ScheduleLayout)
}

func mapTeamErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTeamNotFound
	}
	return err
}
