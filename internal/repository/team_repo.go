package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sotesting/sotesting-api/internal/models"
)

// TeamRepository provides access to team and team member records.
type TeamRepository interface {
	List(ctx context.Context) ([]models.Team, error)
	GetByID(ctx context.Context, id uint) (models.Team, error)
	GetByName(ctx context.Context, name string) (models.Team, error)
	Create(ctx context.Context, team *models.Team) error
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id uint) error
	ListMembers(ctx context.Context, teamID uint) ([]models.TeamMember, error)
	CreateMember(ctx context.Context, member *models.TeamMember) error
	DeleteMember(ctx context.Context, teamID, memberID uint) error
	// Transaction runs fn against a repository bound to one database
	// transaction, committing only when fn returns nil.
	Transaction(ctx context.Context, fn func(repo TeamRepository) error) error
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository constructs a team repository.
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) List(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.WithContext(ctx).
		Order("start_time ASC").
		Order("name ASC").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepository) GetByID(ctx context.Context, id uint) (models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).First(&team, id).Error; err != nil {
		return models.Team{}, err
	}
	return team, nil
}

func (r *teamRepository) GetByName(ctx context.Context, name string) (models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&team).Error; err != nil {
		return models.Team{}, err
	}
	return team, nil
}

func (r *teamRepository) Create(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *teamRepository) Update(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Save(team).Error
}

func (r *teamRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", id).Delete(&models.QuestionGrade{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Team{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *teamRepository) ListMembers(ctx context.Context, teamID uint) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *teamRepository) CreateMember(ctx context.Context, member *models.TeamMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *teamRepository) DeleteMember(ctx context.Context, teamID, memberID uint) error {
	result := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Delete(&models.TeamMember{}, memberID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *teamRepository) Transaction(ctx context.Context, fn func(repo TeamRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&teamRepository{db: tx})
	})
}
