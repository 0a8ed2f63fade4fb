package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/naka-gawa/github-feedback/internal/apperr"
	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/naka-gawa/github-feedback/internal/gateway"
	"github.com/naka-gawa/github-feedback/internal/orchestrator"
)

const (
	daysPerMonth         = 30
	defaultReviewWorkers = 5
)

// CollectorOptions tunes pagination and the parallel phases of a Collector.
type CollectorOptions struct {
	PerPage  int
	MaxPages int

	ReviewWorkers int
	ReviewTimeout time.Duration
	// FetchWorkers and FetchTimeout bound the per-PR detail fetches used when
	// collecting for a single author.
	FetchWorkers int
	FetchTimeout time.Duration

	// NewReporter builds the progress reporter for one parallel batch.
	NewReporter func(label string, total int) orchestrator.Reporter
	Metrics     *orchestrator.Metrics
	Now         func() time.Time
}

// Collector gathers filtered, de-duplicated activity counts for a repository.
type Collector struct {
	fetcher gateway.Fetcher
	opts    CollectorOptions
	logger  *log.Logger
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, opts CollectorOptions, logger *log.Logger) *Collector {
	if opts.PerPage <= 0 {
		opts.PerPage = gateway.DefaultPerPage
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = gateway.DefaultMaxPages
	}
	if opts.ReviewWorkers <= 0 {
		opts.ReviewWorkers = defaultReviewWorkers
	}
	if opts.ReviewTimeout <= 0 {
		opts.ReviewTimeout = 180 * time.Second
	}
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = 3
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 120 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Collector{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
	}
}

type collectSettings struct {
	author string
}

// CollectOption customises a single collection.
type CollectOption func(*collectSettings)

// WithAuthor restricts commits, pull requests and issues to those created by login.
func WithAuthor(login string) CollectOption {
	return func(s *collectSettings) {
		s.author = login
	}
}

// WindowStart returns the start of a window of months ending at now. A month
// is 30 days and the window is at least one month long.
func WindowStart(now time.Time, months int) time.Time {
	return now.AddDate(0, 0, -daysPerMonth*max(months, 1))
}

// Collect counts commits, pull requests, reviews and issues in repo over the
// last months. Commits, pull requests and issues are collected sequentially
// and any failure there aborts the call. Review fetches run in parallel and a
// failing pull request only marks the result incomplete, unless the failure is
// a permission error.
func (c *Collector) Collect(ctx context.Context, repo string, months int, filters *domain.AnalysisFilters, opts ...CollectOption) (*domain.CollectionResult, error) {
	var settings collectSettings
	for _, opt := range opts {
		opt(&settings)
	}
	now := c.opts.Now().UTC()
	since := WindowStart(now, months)
	call := c.newCall(repo, since, filters, settings.author)

	c.logger.Printf("Collecting %s since %s (author=%s)...", repo, since.Format(time.DateOnly), orAll(settings.author))

	c.logger.Println("[1/4] Counting commits...")
	commits, err := call.countCommits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count commits: %w", err)
	}

	c.logger.Println("[2/4] Listing pull requests...")
	listing, err := call.listPullRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}

	c.logger.Println("[3/4] Counting reviews...")
	tally, err := call.countReviews(ctx, listing.PullRequests)
	if err != nil {
		return nil, fmt.Errorf("failed to count reviews: %w", err)
	}

	c.logger.Println("[4/4] Counting issues...")
	issues, err := call.countIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count issues: %w", err)
	}

	until := now
	result := &domain.CollectionResult{
		Repo:                repo,
		Months:              months,
		CollectedAt:         now,
		Commits:             commits,
		PullRequests:        len(listing.PullRequests),
		Reviews:             tally.Total,
		Issues:              issues,
		Filters:             *call.filters,
		PullRequestExamples: BuildPullRequestExamples(listing.PullRequests),
		SinceDate:           &since,
		UntilDate:           &until,
	}
	if n := len(listing.Dropped); n > 0 {
		result.Incomplete = append(result.Incomplete, fmt.Sprintf("pull_requests: %d pull request(s) could not be fetched", n))
	}
	if n := len(tally.Failed); n > 0 {
		result.Incomplete = append(result.Incomplete, fmt.Sprintf("reviews: reviews of %d pull request(s) could not be fetched", n))
	}
	c.logger.Printf("Collection complete: commits=%d pull_requests=%d reviews=%d issues=%d", result.Commits, result.PullRequests, result.Reviews, result.Issues)
	return result, nil
}

// collectCall is the state of one collection. Its caches are written only by
// the sequential phases and never escape the call.
type collectCall struct {
	*Collector
	repo    string
	since   time.Time
	filters *domain.AnalysisFilters
	author  string

	commitFiles map[string][]string
	prFiles     map[int][]string
}

func (c *Collector) newCall(repo string, since time.Time, filters *domain.AnalysisFilters, author string) *collectCall {
	if filters == nil {
		filters = &domain.AnalysisFilters{}
	}
	return &collectCall{
		Collector:   c,
		repo:        repo,
		since:       since.UTC(),
		filters:     filters,
		author:      author,
		commitFiles: make(map[string][]string),
		prFiles:     make(map[int][]string),
	}
}

func (call *collectCall) path(format string, args ...any) string {
	return "repos/" + call.repo + "/" + fmt.Sprintf(format, args...)
}

func (call *collectCall) sinceParam() string {
	return call.since.Format(time.RFC3339)
}

// listParams are the parameters shared by the pulls and issues listings.
func listParams() url.Values {
	return url.Values{
		"state":     {"all"},
		"sort":      {"created"},
		"direction": {"desc"},
	}
}

func (call *collectCall) reporter(label string, total int) orchestrator.Reporter {
	if call.opts.NewReporter == nil {
		return orchestrator.NopReporter{}
	}
	return call.opts.NewReporter(label, total)
}

// withoutProgress returns a copy of c whose parallel batches report no
// progress, for use inside a batch that already renders its own.
func (c *Collector) withoutProgress() *Collector {
	inner := *c
	inner.opts.NewReporter = nil
	return &inner
}

func orAll(author string) string {
	if author == "" {
		return "all"
	}
	return author
}

// AuthenticatedUser returns the login of the token owner.
func (c *Collector) AuthenticatedUser(ctx context.Context) (string, error) {
	var user github.User
	if err := c.fetcher.Get(ctx, "user", nil, &user); err != nil {
		return "", fmt.Errorf("failed to get authenticated user: %w", err)
	}
	if user.GetLogin() == "" {
		return "", apperr.New(apperr.KindValidation, "GET user", errors.New("response has no login"))
	}
	return user.GetLogin(), nil
}
