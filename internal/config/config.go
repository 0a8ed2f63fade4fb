// Package config loads the CLI configuration from defaults, an optional
// YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the top-level configuration struct for github-feedback.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	GitHub   GitHubConfig   `mapstructure:"github"`
	Parallel ParallelConfig `mapstructure:"parallel"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// GitHubConfig holds API access settings.
type GitHubConfig struct {
	APIURL   string `mapstructure:"api_url"`
	Token    string `mapstructure:"token"`
	PerPage  int    `mapstructure:"per_page"`
	MaxPages int    `mapstructure:"max_pages"`
}

// ParallelConfig holds worker counts and batch timeouts.
type ParallelConfig struct {
	ReviewWorkers     int           `mapstructure:"review_workers"`
	CollectionWorkers int           `mapstructure:"collection_workers"`
	AnalysisWorkers   int           `mapstructure:"analysis_workers"`
	YearendWorkers    int           `mapstructure:"yearend_workers"`
	CollectionTimeout time.Duration `mapstructure:"collection_timeout"`
	AnalysisTimeout   time.Duration `mapstructure:"analysis_timeout"`
	ReviewTimeout     time.Duration `mapstructure:"review_timeout"`
	YearendTimeout    time.Duration `mapstructure:"yearend_timeout"`
}

// LLMConfig holds the chat completion endpoint settings.
type LLMConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// LimitsConfig caps how many items a feedback run collects per kind.
type LimitsConfig struct {
	CommitMessages int `mapstructure:"commit_messages"`
	PRTitles       int `mapstructure:"pr_titles"`
	ReviewComments int `mapstructure:"review_comments"`
	Issues         int `mapstructure:"issues"`
}

// CacheConfig holds the on-disk cache location.
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// Sentinel errors for configuration validation.
var (
	ErrMissingToken     = errors.New("github.token is not set (export GITHUB_TOKEN)")
	ErrInvalidPaging    = errors.New("github.per_page must be between 1 and 100 and github.max_pages positive")
	ErrInvalidWorkers   = errors.New("parallel worker counts must be positive")
	ErrInvalidTimeout   = errors.New("timeouts must be positive")
	ErrInvalidRetries   = errors.New("llm.max_retries must be non-negative")
	ErrInvalidLimits    = errors.New("limits must be positive")
	ErrMissingEndpoint  = errors.New("llm.endpoint is not set")
	ErrInvalidCacheRoot = errors.New("cache.dir must not be empty")
)

// Validate checks the values that have no usable fallback.
func (c *Config) Validate() error {
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > 100 || c.GitHub.MaxPages < 1 {
		return ErrInvalidPaging
	}

	p := c.Parallel
	for name, n := range map[string]int{
		"review_workers":     p.ReviewWorkers,
		"collection_workers": p.CollectionWorkers,
		"analysis_workers":   p.AnalysisWorkers,
		"yearend_workers":    p.YearendWorkers,
	} {
		if n <= 0 {
			return fmt.Errorf("%w: parallel.%s=%d", ErrInvalidWorkers, name, n)
		}
	}
	for name, d := range map[string]time.Duration{
		"parallel.collection_timeout": p.CollectionTimeout,
		"parallel.analysis_timeout":   p.AnalysisTimeout,
		"parallel.review_timeout":     p.ReviewTimeout,
		"parallel.yearend_timeout":    p.YearendTimeout,
		"llm.timeout":                 c.LLM.Timeout,
		"llm.retry_delay":             c.LLM.RetryDelay,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s=%s", ErrInvalidTimeout, name, d)
		}
	}

	if c.LLM.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	l := c.Limits
	if l.CommitMessages <= 0 || l.PRTitles <= 0 || l.ReviewComments <= 0 || l.Issues <= 0 {
		return ErrInvalidLimits
	}
	if c.Cache.Dir == "" {
		return ErrInvalidCacheRoot
	}
	return nil
}

// RequireToken reports ErrMissingToken for commands that call GitHub.
func (c *Config) RequireToken() error {
	if c.GitHub.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// RequireLLM reports ErrMissingEndpoint for commands that call the model.
func (c *Config) RequireLLM() error {
	if c.LLM.Endpoint == "" {
		return ErrMissingEndpoint
	}
	return nil
}
