package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuestionGrade stores the latest official grading run of one team on one question.
// A new run replaces the previous row.
type QuestionGrade struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TeamID      uint           `gorm:"uniqueIndex:idx_grade_team_question;not null" json:"team_id"`
	QuestionNum int            `gorm:"uniqueIndex:idx_grade_team_question;not null" json:"question_num"`
	Score       int            `gorm:"not null" json:"score"`
	MaxScore    int            `gorm:"not null" json:"max_score"`
	Tests       datatypes.JSON `json:"tests"`
	GradedAt    time.Time      `json:"graded_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Team        Team           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
