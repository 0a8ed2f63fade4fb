package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".github-feedback"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for github-feedback settings.
const envPrefix = "GHF"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Defaults.
const (
	DefaultPerPage           = 100
	DefaultMaxPages          = 100
	DefaultReviewWorkers     = 5
	DefaultCollectionWorkers = 3
	DefaultAnalysisWorkers   = 4
	DefaultYearendWorkers    = 3
	DefaultCollectionTimeout = 120 * time.Second
	DefaultAnalysisTimeout   = 180 * time.Second
	DefaultReviewTimeout     = 180 * time.Second
	DefaultYearendTimeout    = 600 * time.Second
	DefaultLLMTimeout        = 60 * time.Second
	DefaultLLMMaxRetries     = 3
	DefaultLLMRetryDelay     = 2 * time.Second
	DefaultItemLimit         = 100
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// A missing config file is not an error unless configPath names it.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	// GITHUB_TOKEN is what every GitHub tool reads; GHF_GITHUB_TOKEN wins when both are set.
	if err := viperCfg.BindEnv("github.token", envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind github.token: %w", err)
	}

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("github.api_url", "")
	viperCfg.SetDefault("github.token", "")
	viperCfg.SetDefault("github.per_page", DefaultPerPage)
	viperCfg.SetDefault("github.max_pages", DefaultMaxPages)

	viperCfg.SetDefault("parallel.review_workers", DefaultReviewWorkers)
	viperCfg.SetDefault("parallel.collection_workers", DefaultCollectionWorkers)
	viperCfg.SetDefault("parallel.analysis_workers", DefaultAnalysisWorkers)
	viperCfg.SetDefault("parallel.yearend_workers", DefaultYearendWorkers)
	viperCfg.SetDefault("parallel.collection_timeout", DefaultCollectionTimeout)
	viperCfg.SetDefault("parallel.analysis_timeout", DefaultAnalysisTimeout)
	viperCfg.SetDefault("parallel.review_timeout", DefaultReviewTimeout)
	viperCfg.SetDefault("parallel.yearend_timeout", DefaultYearendTimeout)

	viperCfg.SetDefault("llm.endpoint", "")
	viperCfg.SetDefault("llm.model", "")
	viperCfg.SetDefault("llm.api_key", "")
	viperCfg.SetDefault("llm.timeout", DefaultLLMTimeout)
	viperCfg.SetDefault("llm.max_retries", DefaultLLMMaxRetries)
	viperCfg.SetDefault("llm.retry_delay", DefaultLLMRetryDelay)

	viperCfg.SetDefault("limits.commit_messages", DefaultItemLimit)
	viperCfg.SetDefault("limits.pr_titles", DefaultItemLimit)
	viperCfg.SetDefault("limits.review_comments", DefaultItemLimit)
	viperCfg.SetDefault("limits.issues", DefaultItemLimit)

	viperCfg.SetDefault("cache.dir", defaultCacheDir())
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "github-feedback")
}
