package models

import "time"

// TeamMember is a student registered on a team.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"index;not null" json:"team_id"`
	FirstName string    `gorm:"size:128;not null" json:"first_name"`
	LastName  string    `gorm:"size:128;not null" json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}
