package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/naka-gawa/github-feedback/internal/config"
	"github.com/naka-gawa/github-feedback/internal/gateway"
	"github.com/naka-gawa/github-feedback/internal/llm"
	"github.com/naka-gawa/github-feedback/internal/orchestrator"
	"github.com/naka-gawa/github-feedback/internal/progress"
	"github.com/naka-gawa/github-feedback/internal/usecase"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

const meterName = "github.com/naka-gawa/github-feedback"

// app holds what every GitHub-backed command needs, built once per invocation.
type app struct {
	cfg         *config.Config
	logger      *log.Logger
	gateway     *gateway.GitHubGateway
	collector   *usecase.Collector
	metrics     *orchestrator.Metrics
	newReporter func(label string, total int) orchestrator.Reporter
}

// newLogger discards everything unless --verbose is set.
func newLogger(cmd *cobra.Command) *log.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	logger := newLogger(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}

	gw, err := gateway.NewGitHubGateway(cfg.GitHub.Token, cfg.GitHub.APIURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	metrics, err := orchestrator.NewMetrics(otel.Meter(meterName))
	if err != nil {
		return nil, err
	}
	quiet, _ := cmd.Flags().GetBool("no-progress")
	newReporter := progress.NewReporter(quiet)

	collector := usecase.NewCollector(gw, usecase.CollectorOptions{
		PerPage:       cfg.GitHub.PerPage,
		MaxPages:      cfg.GitHub.MaxPages,
		ReviewWorkers: cfg.Parallel.ReviewWorkers,
		ReviewTimeout: cfg.Parallel.ReviewTimeout,
		FetchWorkers:  cfg.Parallel.CollectionWorkers,
		FetchTimeout:  cfg.Parallel.CollectionTimeout,
		NewReporter:   newReporter,
		Metrics:       metrics,
	}, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		gateway:     gw,
		collector:   collector,
		metrics:     metrics,
		newReporter: newReporter,
	}, nil
}

func (a *app) newAnalyzer() (*llm.Analyzer, error) {
	if err := a.cfg.RequireLLM(); err != nil {
		return nil, err
	}
	metrics, err := llm.NewMetrics(otel.Meter(meterName))
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(llm.Options{
		Endpoint:   a.cfg.LLM.Endpoint,
		Model:      a.cfg.LLM.Model,
		APIKey:     a.cfg.LLM.APIKey,
		Timeout:    a.cfg.LLM.Timeout,
		MaxRetries: a.cfg.LLM.MaxRetries,
		RetryDelay: a.cfg.LLM.RetryDelay,
		Metrics:    metrics,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return llm.NewAnalyzer(client), nil
}
