package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sotesting/sotesting-api/internal/models"
)

// GradeRepository persists the latest official grade per team and question.
type GradeRepository interface {
	Upsert(ctx context.Context, grade *models.QuestionGrade) error
	ListByTeam(ctx context.Context, teamID uint) ([]models.QuestionGrade, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository constructs a grade repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) Upsert(ctx context.Context, grade *models.QuestionGrade) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "question_num"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "max_score", "tests", "graded_at", "updated_at"}),
	}).Create(grade).Error
}

func (r *gradeRepository) ListByTeam(ctx context.Context, teamID uint) ([]models.QuestionGrade, error) {
	var grades []models.QuestionGrade
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("question_num ASC").
		Find(&grades).Error
	if err != nil {
		return nil, err
	}
	return grades, nil
}
