package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-feedback/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

// isolate points HOME and CWD at empty directories and clears token variables.
func isolate(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GHF_GITHUB_TOKEN", "")
	t.Chdir(dir)
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultPerPage, cfg.GitHub.PerPage)
	assert.Equal(t, config.DefaultMaxPages, cfg.GitHub.MaxPages)
	assert.Equal(t, 5, cfg.Parallel.ReviewWorkers)
	assert.Equal(t, 3, cfg.Parallel.CollectionWorkers)
	assert.Equal(t, 4, cfg.Parallel.AnalysisWorkers)
	assert.Equal(t, 3, cfg.Parallel.YearendWorkers)
	assert.Equal(t, 120*time.Second, cfg.Parallel.CollectionTimeout)
	assert.Equal(t, 180*time.Second, cfg.Parallel.AnalysisTimeout)
	assert.Equal(t, 180*time.Second, cfg.Parallel.ReviewTimeout)
	assert.Equal(t, 600*time.Second, cfg.Parallel.YearendTimeout)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.LLM.RetryDelay)
	assert.Equal(t, 100, cfg.Limits.CommitMessages)
	assert.Equal(t, 100, cfg.Limits.Issues)
	assert.NotEmpty(t, cfg.Cache.Dir)
	assert.Empty(t, cfg.GitHub.Token)
}

func TestLoadConfig_File(t *testing.T) {
	isolate(t)

	path := writeConfig(t, `
github:
  api_url: https://ghe.example.com/api/v3
  per_page: 50
parallel:
  review_workers: 8
  analysis_timeout: 90s
llm:
  endpoint: http://localhost:8000/v1/chat/completions
  model: local-model
limits:
  issues: 10
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://ghe.example.com/api/v3", cfg.GitHub.APIURL)
	assert.Equal(t, 50, cfg.GitHub.PerPage)
	assert.Equal(t, 8, cfg.Parallel.ReviewWorkers)
	assert.Equal(t, 90*time.Second, cfg.Parallel.AnalysisTimeout)
	assert.Equal(t, "local-model", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.Limits.Issues)
	assert.Equal(t, 100, cfg.Limits.PRTitles)
}

func TestLoadConfig_Env(t *testing.T) {
	isolate(t)
	t.Setenv("GHF_PARALLEL_REVIEW_WORKERS", "2")
	t.Setenv("GHF_LLM_MODEL", "env-model")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Parallel.ReviewWorkers)
	assert.Equal(t, "env-model", cfg.LLM.Model)
}

func TestLoadConfig_Token(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		expect string
	}{
		{
			name:   "GITHUB_TOKEN",
			env:    map[string]string{"GITHUB_TOKEN": "gh-token"},
			expect: "gh-token",
		},
		{
			name:   "prefixed variable wins",
			env:    map[string]string{"GITHUB_TOKEN": "gh-token", "GHF_GITHUB_TOKEN": "ghf-token"},
			expect: "ghf-token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := config.LoadConfig("")
			require.NoError(t, err)
			assert.Equal(t, tt.expect, cfg.GitHub.Token)
			assert.NoError(t, cfg.RequireToken())
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	isolate(t)

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})

	t.Run("invalid value", func(t *testing.T) {
		path := writeConfig(t, "parallel:\n  analysis_workers: 0\n")

		_, err := config.LoadConfig(path)
		require.ErrorIs(t, err, config.ErrInvalidWorkers)
		assert.Contains(t, err.Error(), "validate config")
	})
}
