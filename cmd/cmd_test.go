package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepo(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "octo/hello", want: "octo/hello"},
		{in: " octo/hello ", want: "octo/hello"},
		{in: "octo", wantErr: true},
		{in: "/hello", wantErr: true},
		{in: "octo/", wantErr: true},
		{in: "octo/hello/world", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRepo(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFiltersFromFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want *domain.AnalysisFilters
	}{
		{
			name: "defaults exclude bots",
			want: &domain.AnalysisFilters{ExcludeBots: true},
		},
		{
			name: "all filters",
			args: []string{"--branch", "main,dev", "--exclude-branch", "tmp", "--path", "src/", "--exclude-path", "vendor/", "--language", "go", "--include-bots"},
			want: &domain.AnalysisFilters{
				IncludeBranches:  []string{"main", "dev"},
				ExcludeBranches:  []string{"tmp"},
				IncludePaths:     []string{"src/"},
				ExcludePaths:     []string{"vendor/"},
				IncludeLanguages: []string{"go"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &cobra.Command{Use: "test"}
			addFilterFlags(c)
			require.NoError(t, c.ParseFlags(tt.args))

			got := filtersFromFlags(c)
			assert.Equal(t, tt.want.IncludeBranches, got.IncludeBranches)
			assert.Equal(t, tt.want.ExcludeBranches, got.ExcludeBranches)
			assert.Equal(t, tt.want.IncludePaths, got.IncludePaths)
			assert.Equal(t, tt.want.ExcludePaths, got.ExcludePaths)
			assert.Equal(t, tt.want.IncludeLanguages, got.IncludeLanguages)
			assert.Equal(t, tt.want.ExcludeBots, got.ExcludeBots)
		})
	}
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("json"))
	assert.NoError(t, checkFormat("table"))
	assert.Error(t, checkFormat("yaml"))
}

func TestWriteJSON(t *testing.T) {
	merged := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	result := &domain.CollectionResult{
		Repo:    "octo/hello",
		Commits: 3,
		PullRequestExamples: []domain.PullRequestSummary{
			{Number: 1, Title: "open"},
			{Number: 2, Title: "merged", MergedAt: &merged},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, result))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "octo/hello", decoded["repo"])
	assert.EqualValues(t, 3, decoded["commits"])

	examples := decoded["pull_request_examples"].([]any)
	assert.NotContains(t, examples[0].(map[string]any), "merged_at")
	assert.Contains(t, examples[1].(map[string]any), "merged_at")
}

func TestWriteCollectionTable(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	result := &domain.CollectionResult{
		Repo:                "octo/hello",
		Months:              6,
		Commits:             1234,
		PullRequests:        5,
		Reviews:             7,
		Issues:              2,
		SinceDate:           &since,
		UntilDate:           &until,
		PullRequestExamples: []domain.PullRequestSummary{{Number: 42, Title: "Add feature", Author: "alice", Additions: 1500, Deletions: 3}},
		Incomplete:          []string{"reviews: reviews of 1 pull request(s) could not be fetched"},
	}

	var buf bytes.Buffer
	writeCollectionTable(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "octo/hello, last 6 month(s) (2025-01-01 to 2025-06-30)")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "Add feature")
	assert.Contains(t, out, "+1,500/-3")
	assert.Contains(t, out, "Incomplete: reviews")
}

func TestWriteYearSummaryTable(t *testing.T) {
	summary := &domain.YearSummary{
		Year:  2024,
		Login: "alice",
		Repositories: []*domain.RepoStats{
			{Name: "o/a", Commits: 10, PullRequests: 2},
			{Name: "o/b", Commits: 4, Incomplete: true},
		},
		Totals:        domain.RepoStats{Name: "total", Commits: 14, PullRequests: 2, Incomplete: true},
		CommitsMedian: 7,
		CommitsP90:    10,
		Skipped:       []string{"o/c"},
	}

	var buf bytes.Buffer
	writeYearSummaryTable(&buf, summary)
	out := buf.String()

	assert.Contains(t, out, "2024 year review for alice")
	assert.Contains(t, out, "o/a")
	assert.Contains(t, out, "incomplete")
	assert.Contains(t, out, "median 7.0, p90 10.0")
	assert.Contains(t, out, "Skipped: o/c")
}

func TestClearCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "entry"), []byte("x"), 0o600))

	require.NoError(t, clearCache(dir))
	assert.NoDirExists(t, dir)

	// Removing a missing directory is not an error.
	assert.NoError(t, clearCache(dir))
	assert.Error(t, clearCache(""))
	assert.Error(t, clearCache("/"))
}

func TestClearCache_RefusesProtectedDirectories(t *testing.T) {
	root := t.TempDir()
	home := filepath.Join(root, "home", "alice")
	work := filepath.Join(root, "work", "project")
	require.NoError(t, os.MkdirAll(home, 0o755))
	require.NoError(t, os.MkdirAll(work, 0o755))
	t.Setenv("HOME", home)
	t.Chdir(work)

	tests := []struct {
		name    string
		dir     string
		wantErr string
	}{
		{name: "home directory", dir: home, wantErr: "home directory"},
		{name: "parent of home", dir: filepath.Join(root, "home"), wantErr: "home directory"},
		{name: "working directory as dot", dir: ".", wantErr: "working directory"},
		{name: "parent of working directory", dir: "..", wantErr: "working directory"},
		{name: "filesystem root", dir: "/", wantErr: "filesystem root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := clearCache(tt.dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.DirExists(t, home)
	assert.DirExists(t, work)

	// A dedicated directory below home or the working directory is fine.
	for _, dir := range []string{filepath.Join(home, ".cache", "github-feedback"), filepath.Join(work, "..cache")} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, clearCache(dir))
		assert.NoDirExists(t, dir)
	}
}
