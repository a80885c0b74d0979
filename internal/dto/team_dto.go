package dto

import "github.com/sotesting/sotesting-api/internal/models"

// TeamResponse is the public view of a team; credentials are never exposed.
type TeamResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// TeamMemberCreateRequest is the payload for adding a member to the caller's team.
type TeamMemberCreateRequest struct {
	FirstName string `json:"first_name" validate:"required,max=128"`
	LastName  string `json:"last_name" validate:"required,max=128"`
}

// TeamMemberResponse represents a member to API consumers.
type TeamMemberResponse struct {
	ID        uint   `json:"id"`
	TeamID    uint   `json:"team_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TeamRequest creates or replaces a team, one roster line per team.
type TeamRequest struct {
	Name      string `validate:"required,teamname"`
	Password  string `validate:"required"`
	StartTime string `validate:"omitempty,datetime=15:04"`
	EndTime   string `validate:"omitempty,datetime=15:04"`
}

// TeamImportResult summarises a roster import.
type TeamImportResult struct {
	Created int
	Updated int
	Deleted int
}

// NewTeamResponse converts a team model into its public representation.
func NewTeamResponse(team models.Team) TeamResponse {
	return TeamResponse{
		ID:        team.ID,
		Name:      team.Name,
		StartTime: team.StartTime,
		EndTime:   team.EndTime,
	}
}

// NewTeamResponseSlice converts a slice of team models.
func NewTeamResponseSlice(teams []models.Team) []TeamResponse {
	responses := make([]TeamResponse, 0, len(teams))
	for _, team := range teams {
		responses = append(responses, NewTeamResponse(team))
	}
	return responses
}

// NewTeamMemberResponse converts a team member model.
func NewTeamMemberResponse(member models.TeamMember) TeamMemberResponse {
	return TeamMemberResponse{
		ID:        member.ID,
		TeamID:    member.TeamID,
		FirstName: member.FirstName,
		LastName:  member.LastName,
	}
}
