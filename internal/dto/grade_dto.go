package dto

import (
	"time"

	"github.com/sotesting/sotesting-api/internal/models"
)

// QuestionGradeResponse is the outcome of an official grading run.
type QuestionGradeResponse struct {
	TeamName    string       `json:"team_name"`
	QuestionNum int          `json:"question_num"`
	Score       int          `json:"score"`
	MaxScore    int          `json:"max_score"`
	Tests       []ScoredTest `json:"tests"`
	GradedAt    time.Time    `json:"graded_at"`
}

// QuestionTotal is the persisted total of one question.
type QuestionTotal struct {
	QuestionNum int       `json:"question_num"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	GradedAt    time.Time `json:"graded_at"`
}

// TeamGradeSummary aggregates the latest grade of every question for a team.
type TeamGradeSummary struct {
	TeamName  string          `json:"team_name"`
	Score     int             `json:"score"`
	MaxScore  int             `json:"max_score"`
	Questions []QuestionTotal `json:"questions"`
}

// GradeEvent is published whenever a question is officially graded.
type GradeEvent struct {
	ID          string    `json:"id"`
	TeamName    string    `json:"team_name"`
	QuestionNum int       `json:"question_num"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	GradedAt    time.Time `json:"graded_at"`
}

// NewQuestionTotal converts a persisted grade.
func NewQuestionTotal(grade models.QuestionGrade) QuestionTotal {
	return QuestionTotal{
		QuestionNum: grade.QuestionNum,
		Score:       grade.Score,
		MaxScore:    grade.MaxScore,
		GradedAt:    grade.GradedAt,
	}
}
