package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmissionFileRepositoryOverwritesLatest(t *testing.T) {
	root := t.TempDir()
	repo := NewSubmissionFileRepository(root)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "C12", 3, []byte("print(1)\n")))
	require.NoError(t, repo.Save(ctx, "C12", 3, []byte("print(2)\n")))

	contents, err := repo.Read(ctx, "C12", 3)
	require.NoError(t, err)
	require.Equal(t, "print(2)\n", string(contents))

	path, err := repo.Path("C12", 3)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "q3", "C12.py"), path)

	entries, err := os.ReadDir(filepath.Join(root, "q3"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSubmissionFileRepositoryMissingFile(t *testing.T) {
	repo := NewSubmissionFileRepository(t.TempDir())

	_, err := repo.Read(context.Background(), "C12", 1)
	require.ErrorIs(t, err, ErrSubmissionFileNotFound)
}

func TestSubmissionFileRepositoryRejectsUnsafeNames(t *testing.T) {
	repo := NewSubmissionFileRepository(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", "../etc", "a/b", "team.py", "with space"} {
		require.ErrorIs(t, repo.Save(ctx, name, 1, []byte("x")), ErrInvalidTeamName, name)
	}

	require.Error(t, repo.Save(ctx, "C12", 0, []byte("x")))
}

func TestValidTeamName(t *testing.T) {
	for _, name := range []string{"C12", "team_01", "b-7"} {
		require.True(t, ValidTeamName(name), name)
	}
	for _, name := range []string{"", "Team 12", "C.12", "../x", "ü1"} {
		require.False(t, ValidTeamName(name), name)
	}
}
