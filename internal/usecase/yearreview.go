package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/naka-gawa/github-feedback/internal/gateway"
	"github.com/naka-gawa/github-feedback/internal/orchestrator"
)

const yearReviewMonths = 12

// ErrNoRepositories is returned when discovery finds nothing to review.
var ErrNoRepositories = errors.New("no repositories found with contributions")

// YearReviewOptions configures a YearReview.
type YearReviewOptions struct {
	Workers          int
	Timeout          time.Duration
	MinContributions int
	NewReporter      func(label string, total int) orchestrator.Reporter
	Metrics          *orchestrator.Metrics
}

// YearReview collects every repository the authenticated user contributed to
// in a calendar year and aggregates the results.
type YearReview struct {
	finder     gateway.ContributionFinder
	collector  *Collector
	aggregator *Aggregator
	opts       YearReviewOptions
	logger     *log.Logger
}

// NewYearReview creates a new YearReview instance.
func NewYearReview(finder gateway.ContributionFinder, collector *Collector, opts YearReviewOptions, logger *log.Logger) *YearReview {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 600 * time.Second
	}
	if opts.MinContributions <= 0 {
		opts.MinContributions = 3
	}
	return &YearReview{
		finder:     finder,
		collector:  collector,
		aggregator: NewAggregator(logger),
		opts:       opts,
		logger:     logger,
	}
}

// YearRange returns the first and last instant of year in UTC.
func YearRange(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	return from, to
}

// Discover returns the repositories with at least MinContributions commits
// in year, most active first.
func (y *YearReview) Discover(ctx context.Context, year int) (*domain.ContributionSummary, error) {
	from, to := YearRange(year)
	found, err := y.finder.DiscoverContributedRepositories(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to discover repositories: %w", err)
	}

	summary := &domain.ContributionSummary{Login: found.Login}
	for _, repo := range found.Repositories {
		if repo.NameWithOwner == "" || repo.Commits < y.opts.MinContributions {
			continue
		}
		summary.Repositories = append(summary.Repositories, repo)
	}
	sort.SliceStable(summary.Repositories, func(i, j int) bool {
		return summary.Repositories[i].Commits > summary.Repositories[j].Commits
	})
	return summary, nil
}

// yearReviewKey is the task key for a repository.
func yearReviewKey(fullName string) string {
	return "repo_" + strings.ReplaceAll(fullName, "/", "__")
}

// Run reviews year for the authenticated user. A repository whose collection
// fails or times out is skipped; the run fails only when discovery finds
// nothing, every repository fails, or a permission error or cancellation
// occurs.
func (y *YearReview) Run(ctx context.Context, year int, filters *domain.AnalysisFilters) (*domain.YearSummary, error) {
	login, err := y.collector.AuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	y.logger.Printf("Phase 1: discovering repositories %s contributed to in %d...", login, year)
	discovered, err := y.Discover(ctx, year)
	if err != nil {
		return nil, err
	}
	if len(discovered.Repositories) == 0 {
		return nil, fmt.Errorf("%w in %d", ErrNoRepositories, year)
	}
	for i, repo := range discovered.Repositories {
		y.logger.Printf("  %d. %s (%d commits)", i+1, repo.NameWithOwner, repo.Commits)
	}

	y.logger.Printf("Phase 2: analyzing %d repositories in parallel...", len(discovered.Repositories))
	collector := y.collector.withoutProgress()
	tasks := make(map[string]orchestrator.Task[*domain.CollectionResult], len(discovered.Repositories))
	for _, repo := range discovered.Repositories {
		name := repo.NameWithOwner
		tasks[yearReviewKey(name)] = orchestrator.Task[*domain.CollectionResult]{
			Label: "Repository: " + name,
			Fn: func(ctx context.Context) (*domain.CollectionResult, error) {
				return collector.Collect(ctx, name, yearReviewMonths, filters, WithAuthor(login))
			},
		}
	}
	reporter := orchestrator.Reporter(orchestrator.NopReporter{})
	if y.opts.NewReporter != nil {
		reporter = y.opts.NewReporter("Repositories", len(tasks))
	}
	results, err := orchestrator.RunParallelTasks(ctx, tasks, orchestrator.Options{
		MaxWorkers: y.opts.Workers,
		Timeout:    y.opts.Timeout,
		Kind:       orchestrator.Analysis,
		Logger:     y.logger,
		Reporter:   reporter,
		Metrics:    y.opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := firstPermissionError(results.Errors); err != nil {
		return nil, err
	}

	var collected []*domain.CollectionResult
	var skipped []string
	for _, repo := range discovered.Repositories {
		result := results.Values[yearReviewKey(repo.NameWithOwner)]
		if result == nil {
			y.logger.Printf("⚠ Skipped %s due to analysis failure", repo.NameWithOwner)
			skipped = append(skipped, repo.NameWithOwner)
			continue
		}
		collected = append(collected, result)
	}
	if len(collected) == 0 {
		return nil, fmt.Errorf("all %d repository analyses failed", len(discovered.Repositories))
	}

	y.logger.Println("Phase 3: aggregating year summary...")
	return y.aggregator.Aggregate(year, login, collected, skipped)
}
