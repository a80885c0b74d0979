package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var (
	// ErrSubmissionFileNotFound indicates no stored submission exists for the team and question.
	ErrSubmissionFileNotFound = errors.New("submission file not found")
	// ErrInvalidTeamName indicates the team name cannot be used as a file name.
	ErrInvalidTeamName = errors.New("team name is not usable as a submission key")
)

var teamFileName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidTeamName reports whether name can key a team's submission files.
func ValidTeamName(name string) bool {
	return teamFileName.MatchString(name)
}

// SubmissionFileRepository keeps the latest submission per team and question on
// disk, laid out as <root>/q<question>/<team>.py.
type SubmissionFileRepository interface {
	Save(ctx context.Context, teamName string, question int, contents []byte) error
	Read(ctx context.Context, teamName string, question int) ([]byte, error)
	Path(teamName string, question int) (string, error)
}

type submissionFileRepository struct {
	root string
}

// NewSubmissionFileRepository constructs a file backed submission repository rooted at dir.
func NewSubmissionFileRepository(dir string) SubmissionFileRepository {
	return &submissionFileRepository{root: dir}
}

func (r *submissionFileRepository) Path(teamName string, question int) (string, error) {
	if !ValidTeamName(teamName) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTeamName, teamName)
	}
	if question <= 0 {
		return "", fmt.Errorf("invalid question number %d", question)
	}
	return filepath.Join(r.root, "q"+strconv.Itoa(question), teamName+".py"), nil
}

// Save overwrites the stored submission. The file is written beside its final
// name and renamed into place so readers never observe a partial file.
func (r *submissionFileRepository) Save(ctx context.Context, teamName string, question int, contents []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := r.Path(teamName, question)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create submission directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+teamName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create submission file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		return fmt.Errorf("write submission file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close submission file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod submission file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace submission file: %w", err)
	}

	return nil
}

func (r *submissionFileRepository) Read(ctx context.Context, teamName string, question int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := r.Path(teamName, question)
	if err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSubmissionFileNotFound
		}
		return nil, fmt.Errorf("read submission file: %w", err)
	}
	return contents, nil
}
