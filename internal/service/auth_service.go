package service

import (
	"context"
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/sotesting/sotesting-api/internal/dto"
)

// Token roles.
const (
	RoleTeam  = "team"
	RoleAdmin = "admin"
)

// AuthConfig carries token signing and administrator settings.
type AuthConfig struct {
	Secret        string
	TTL           time.Duration
	AdminName     string
	AdminPassword string
}

// TokenClaims is the JWT payload issued at login.
type TokenClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues access tokens.
type AuthService interface {
	Login(ctx context.Context, payload dto.LoginRequest) (dto.LoginResponse, error)
}

type authService struct {
	teams     TeamService
	validator *validator.Validate
	cfg       AuthConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the authentication service.
func NewAuthService(teams TeamService, validate *validator.Validate, cfg AuthConfig, logger zerolog.Logger) AuthService {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &authService{
		teams:     teams,
		validator: validate,
		cfg:       cfg,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.LoginResponse, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	if err := s.validator.Struct(payload); err != nil {
		return dto.LoginResponse{}, err
	}

	if s.isAdmin(payload) {
		s.logger.Info().Msg("administrator logged in")
		return s.issue("admin", payload.Name, RoleAdmin)
	}

	team, err := s.teams.Authenticate(ctx, payload.Name, payload.Password)
	if err != nil {
		s.logger.Warn().Str("team", payload.Name).Msg("rejected login")
		return dto.LoginResponse{}, err
	}

	response, err := s.issue(strconv.FormatUint(uint64(team.ID), 10), team.Name, RoleTeam)
	if err != nil {
		return dto.LoginResponse{}, err
	}
	response.TeamName = team.Name
	return response, nil
}

func (s *authService) isAdmin(payload dto.LoginRequest) bool {
	if s.cfg.AdminName == "" || s.cfg.AdminPassword == "" {
		return false
	}
	nameOK := subtle.ConstantTimeCompare([]byte(payload.Name), []byte(s.cfg.AdminName)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(payload.Password), []byte(s.cfg.AdminPassword)) == 1
	return nameOK && passwordOK
}

func (s *authService) issue(subject, name, role string) (dto.LoginResponse, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.cfg.TTL)

	claims := TokenClaims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Role:        role,
	}, nil
}
