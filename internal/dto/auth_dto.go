package dto

import "time"

// LoginRequest carries team (or administrator) credentials.
type LoginRequest struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns a bearer token for subsequent requests.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        string    `json:"role"`
	TeamName    string    `json:"team_name,omitempty"`
}
