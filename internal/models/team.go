package models

import (
	"fmt"
	"time"
)

// ScheduleLayout is the wall-clock format of a team's competition window.
const ScheduleLayout = "15:04"

// Team represents a competing team. The name doubles as the login and as the
// key of the team's submission files.
type Team struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"size:64;uniqueIndex;not null" json:"name"`
	PasswordHash string       `gorm:"size:255;not null" json:"-"`
	StartTime    string       `gorm:"size:5" json:"start_time"`
	EndTime      string       `gorm:"size:5" json:"end_time"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Members      []TeamMember `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"members,omitempty"`
}

// WithinSchedule reports whether now falls inside the team's window. A team
// without a window is always allowed; an end before the start wraps midnight.
func (t Team) WithinSchedule(now time.Time) (bool, error) {
	if t.StartTime == "" || t.EndTime == "" {
		return true, nil
	}

	start, err := minuteOfDay(t.StartTime)
	if err != nil {
		return false, err
	}
	end, err := minuteOfDay(t.EndTime)
	if err != nil {
		return false, err
	}

	current := now.Hour()*60 + now.Minute()
	if start <= end {
		return current >= start && current < end, nil
	}
	return current >= start || current < end, nil
}

func minuteOfDay(value string) (int, error) {
	parsed, err := time.Parse(ScheduleLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule time %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
