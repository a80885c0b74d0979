package service

import (
	"context"
	"io"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sotesting/sotesting-api/internal/models"
	"github.com/sotesting/sotesting-api/internal/repository"
	"github.com/sotesting/sotesting-api/pkg/judge"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

type stubDispatcher struct {
	mu       sync.Mutex
	report   judge.Report
	err      error
	archives [][]byte
}

func (s *stubDispatcher) Dispatch(ctx context.Context, archive []byte) (judge.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives = append(s.archives, archive)
	if s.err != nil {
		return judge.Report{}, s.err
	}
	return s.report, nil
}

type fakeTeamRepo struct {
	nextID  uint
	teams   map[uint]models.Team
	members map[uint]models.TeamMember
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{
		teams:   map[uint]models.Team{},
		members: map[uint]models.TeamMember{},
	}
}

func (f *fakeTeamRepo) List(ctx context.Context) ([]models.Team, error) {
	teams := make([]models.Team, 0, len(f.teams))
	for id := uint(1); id <= f.nextID; id++ {
		if team, ok := f.teams[id]; ok {
			teams = append(teams, team)
		}
	}
	return teams, nil
}

func (f *fakeTeamRepo) GetByID(ctx context.Context, id uint) (models.Team, error) {
	team, ok := f.teams[id]
	if !ok {
		return models.Team{}, gorm.ErrRecordNotFound
	}
	return team, nil
}

func (f *fakeTeamRepo) GetByName(ctx context.Context, name string) (models.Team, error) {
	for _, team := range f.teams {
		if team.Name == name {
			return team, nil
		}
	}
	return models.Team{}, gorm.ErrRecordNotFound
}

func (f *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	f.nextID++
	team.ID = f.nextID
	f.teams[team.ID] = *team
	return nil
}

func (f *fakeTeamRepo) Update(ctx context.Context, team *models.Team) error {
	f.teams[team.ID] = *team
	return nil
}

func (f *fakeTeamRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := f.teams[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.teams, id)
	return nil
}

func (f *fakeTeamRepo) ListMembers(ctx context.Context, teamID uint) ([]models.TeamMember, error) {
	var members []models.TeamMember
	for _, member := range f.members {
		if member.TeamID == teamID {
			members = append(members, member)
		}
	}
	return members, nil
}

func (f *fakeTeamRepo) CreateMember(ctx context.Context, member *models.TeamMember) error {
	member.ID = uint(len(f.members) + 1)
	f.members[member.ID] = *member
	return nil
}

func (f *fakeTeamRepo) DeleteMember(ctx context.Context, teamID, memberID uint) error {
	member, ok := f.members[memberID]
	if !ok || member.TeamID != teamID {
		return gorm.ErrRecordNotFound
	}
	delete(f.members, memberID)
	return nil
}

// Transaction snapshots the fake and restores it when fn fails.
func (f *fakeTeamRepo) Transaction(ctx context.Context, fn func(repo repository.TeamRepository) error) error {
	nextID := f.nextID
	teams := make(map[uint]models.Team, len(f.teams))
	for id, team := range f.teams {
		teams[id] = team
	}
	members := make(map[uint]models.TeamMember, len(f.members))
	for id, member := range f.members {
		members[id] = member
	}

	if err := fn(f); err != nil {
		f.nextID, f.teams, f.members = nextID, teams, members
		return err
	}
	return nil
}

type fakeGradeRepo struct {
	grades map[uint]map[int]models.QuestionGrade
}

func newFakeGradeRepo() *fakeGradeRepo {
	return &fakeGradeRepo{grades: map[uint]map[int]models.QuestionGrade{}}
}

func (f *fakeGradeRepo) Upsert(ctx context.Context, grade *models.QuestionGrade) error {
	if f.grades[grade.TeamID] == nil {
		f.grades[grade.TeamID] = map[int]models.QuestionGrade{}
	}
	f.grades[grade.TeamID][grade.QuestionNum] = *grade
	return nil
}

func (f *fakeGradeRepo) ListByTeam(ctx context.Context, teamID uint) ([]models.QuestionGrade, error) {
	var grades []models.QuestionGrade
	for question := 1; question <= 20; question++ {
		if grade, ok := f.grades[teamID][question]; ok {
			grades = append(grades, grade)
		}
	}
	return grades, nil
}

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}
