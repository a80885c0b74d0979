package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("SOTEST_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 89, cfg.JudgeLanguageID)
	require.Equal(t, 30*time.Second, cfg.JudgeTimeout)
	require.Equal(t, "es_files/submissions", cfg.SubmissionsDir)
	require.Equal(t, ":8080", cfg.HTTPAddress())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("SOTEST_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvalidTimeout(t *testing.T) {
	t.Setenv("SOTEST_JWT_SECRET", "secret")
	t.Setenv("SOTEST_JUDGE_TIMEOUT", "soon")

	_, err := Load()
	require.ErrorContains(t, err, "judge.timeout")
}

func TestLoadTrimsJudgeURL(t *testing.T) {
	t.Setenv("SOTEST_JWT_SECRET", "secret")
	t.Setenv("SOTEST_JUDGE_URL", "http://judge:2358/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://judge:2358", cfg.JudgeURL)
}
