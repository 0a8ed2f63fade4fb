package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/naka-gawa/github-feedback/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		GitHub: config.GitHubConfig{Token: "token", PerPage: 100, MaxPages: 100},
		Parallel: config.ParallelConfig{
			ReviewWorkers:     5,
			CollectionWorkers: 3,
			AnalysisWorkers:   4,
			YearendWorkers:    3,
			CollectionTimeout: time.Minute,
			AnalysisTimeout:   time.Minute,
			ReviewTimeout:     time.Minute,
			YearendTimeout:    time.Minute,
		},
		LLM:    config.LLMConfig{Endpoint: "http://localhost", Timeout: time.Minute, RetryDelay: time.Second},
		Limits: config.LimitsConfig{CommitMessages: 1, PRTitles: 1, ReviewComments: 1, Issues: 1},
		Cache:  config.CacheConfig{Dir: "/tmp/cache"},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "per page too large", mutate: func(c *config.Config) { c.GitHub.PerPage = 101 }, want: config.ErrInvalidPaging},
		{name: "zero max pages", mutate: func(c *config.Config) { c.GitHub.MaxPages = 0 }, want: config.ErrInvalidPaging},
		{name: "zero review workers", mutate: func(c *config.Config) { c.Parallel.ReviewWorkers = 0 }, want: config.ErrInvalidWorkers},
		{name: "negative yearend workers", mutate: func(c *config.Config) { c.Parallel.YearendWorkers = -1 }, want: config.ErrInvalidWorkers},
		{name: "zero analysis timeout", mutate: func(c *config.Config) { c.Parallel.AnalysisTimeout = 0 }, want: config.ErrInvalidTimeout},
		{name: "zero llm timeout", mutate: func(c *config.Config) { c.LLM.Timeout = 0 }, want: config.ErrInvalidTimeout},
		{name: "negative retries", mutate: func(c *config.Config) { c.LLM.MaxRetries = -1 }, want: config.ErrInvalidRetries},
		{name: "zero limit", mutate: func(c *config.Config) { c.Limits.Issues = 0 }, want: config.ErrInvalidLimits},
		{name: "empty cache dir", mutate: func(c *config.Config) { c.Cache.Dir = "" }, want: config.ErrInvalidCacheRoot},
		{name: "token is not required", mutate: func(c *config.Config) { c.GitHub.Token = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequire(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.NoError(t, cfg.RequireToken())
	assert.NoError(t, cfg.RequireLLM())

	cfg.GitHub.Token = ""
	cfg.LLM.Endpoint = ""
	assert.ErrorIs(t, cfg.RequireToken(), config.ErrMissingToken)
	assert.ErrorIs(t, cfg.RequireLLM(), config.ErrMissingEndpoint)
}
