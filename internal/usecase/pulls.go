package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/naka-gawa/github-feedback/internal/apperr"
	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/naka-gawa/github-feedback/internal/filter"
	"github.com/naka-gawa/github-feedback/internal/gateway"
	"github.com/naka-gawa/github-feedback/internal/orchestrator"
)

// PullRequestListing is the filtered pull requests of a window, newest first.
type PullRequestListing struct {
	PullRequests []*github.PullRequest
	// Dropped holds PR numbers whose details could not be fetched.
	Dropped []int
}

// ListPullRequests returns the pull requests created in repo since the given
// time that pass filters, newest first.
func (c *Collector) ListPullRequests(ctx context.Context, repo string, since time.Time, filters *domain.AnalysisFilters, author string) (*PullRequestListing, error) {
	return c.newCall(repo, since, filters, author).listPullRequests(ctx)
}

func (call *collectCall) listPullRequests(ctx context.Context) (*PullRequestListing, error) {
	if call.author != "" {
		return call.listPullRequestsByAuthor(ctx)
	}

	// The listing is sorted by creation time, newest first, so the first PR
	// created before the window ends the scan.
	since := call.since
	prs, err := gateway.PaginateLimit(ctx, call.fetcher, call.path("pulls"), listParams(), call.opts.PerPage, call.opts.MaxPages, func(pr *github.PullRequest) bool {
		return pr.GetCreatedAt().Before(since)
	})
	if err != nil {
		return nil, err
	}
	kept, err := call.applyPRFilters(ctx, prs)
	if err != nil {
		return nil, err
	}
	return &PullRequestListing{PullRequests: kept}, nil
}

// listPullRequestsByAuthor uses the issues endpoint, which can filter by
// creator, and then fetches each pull request in parallel.
func (call *collectCall) listPullRequestsByAuthor(ctx context.Context) (*PullRequestListing, error) {
	params := listParams()
	params.Set("creator", call.author)
	issues, err := gateway.PaginateLimit[*github.Issue](ctx, call.fetcher, call.path("issues"), params, call.opts.PerPage, call.opts.MaxPages, nil)
	if err != nil {
		return nil, err
	}

	var numbers []int
	for _, issue := range issues {
		if !issue.IsPullRequest() {
			continue
		}
		if issue.CreatedAt != nil && issue.GetCreatedAt().Before(call.since) {
			continue
		}
		if n := issue.GetNumber(); n != 0 {
			numbers = append(numbers, n)
		}
	}

	tasks := make(map[string]orchestrator.Task[*github.PullRequest], len(numbers))
	for _, n := range numbers {
		tasks[prKey(n)] = orchestrator.Task[*github.PullRequest]{
			Label: fmt.Sprintf("PR #%d", n),
			Fn: func(ctx context.Context) (*github.PullRequest, error) {
				var pr github.PullRequest
				if err := call.fetcher.Get(ctx, call.path("pulls/%d", n), nil, &pr); err != nil {
					return nil, err
				}
				return &pr, nil
			},
		}
	}
	res, err := orchestrator.RunParallelTasks(ctx, tasks, orchestrator.Options{
		MaxWorkers: call.opts.FetchWorkers,
		Timeout:    call.opts.FetchTimeout,
		Kind:       orchestrator.Collection,
		Logger:     call.logger,
		Reporter:   call.reporter("Fetching pull requests", len(tasks)),
		Metrics:    call.opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := firstPermissionError(res.Errors); err != nil {
		return nil, err
	}

	listing := &PullRequestListing{}
	var fetched []*github.PullRequest
	for _, n := range numbers {
		pr, ok := res.Get(prKey(n))
		if !ok || pr == nil {
			listing.Dropped = append(listing.Dropped, n)
			continue
		}
		fetched = append(fetched, pr)
	}
	listing.PullRequests, err = call.applyPRFilters(ctx, fetched)
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (call *collectCall) applyPRFilters(ctx context.Context, prs []*github.PullRequest) ([]*github.PullRequest, error) {
	var kept []*github.PullRequest
	for _, pr := range prs {
		if filter.FilterBot(pr.GetUser(), call.filters) {
			continue
		}
		if !filter.PRMatchesBranchFilters(pr, call.filters) {
			continue
		}
		ok, err := call.prMatchesFileFilters(ctx, pr.GetNumber())
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, pr)
		}
	}
	return kept, nil
}

// prMatchesFileFilters fetches the PR's file list once per call.
func (call *collectCall) prMatchesFileFilters(ctx context.Context, number int) (bool, error) {
	if !call.filters.HasFileFilters() {
		return true, nil
	}
	files, ok := call.prFiles[number]
	if !ok {
		entries, err := gateway.PaginateLimit[*github.CommitFile](ctx, call.fetcher, call.path("pulls/%d/files", number), nil, call.opts.PerPage, call.opts.MaxPages, nil)
		if err != nil {
			return false, err
		}
		files = make([]string, 0, len(entries))
		for _, e := range entries {
			files = append(files, e.GetFilename())
		}
		call.prFiles[number] = files
	}
	return filter.ApplyFileFilters(files, call.filters), nil
}

// BuildPullRequestExamples projects the first few pull requests into summaries.
func BuildPullRequestExamples(prs []*github.PullRequest) []domain.PullRequestSummary {
	examples := []domain.PullRequestSummary{}
	for _, pr := range prs[:min(len(prs), domain.MaxPullRequestExamples)] {
		title := strings.TrimSpace(pr.GetTitle())
		if title == "" {
			title = "(no title)"
		}
		author := pr.GetUser().GetLogin()
		if author == "" {
			author = "unknown"
		}
		summary := domain.PullRequestSummary{
			Number:    pr.GetNumber(),
			Title:     title,
			Author:    author,
			HTMLURL:   pr.GetHTMLURL(),
			CreatedAt: pr.GetCreatedAt().UTC(),
			Additions: pr.GetAdditions(),
			Deletions: pr.GetDeletions(),
		}
		if pr.MergedAt != nil {
			merged := pr.GetMergedAt().UTC()
			summary.MergedAt = &merged
		}
		examples = append(examples, summary)
	}
	return examples
}

// CollectPRTitles returns up to limit pull request titles from the first page
// of the newest pull requests.
func (c *Collector) CollectPRTitles(ctx context.Context, repo string, since time.Time, filters *domain.AnalysisFilters, limit int, author string) ([]domain.PRTitle, error) {
	call := c.newCall(repo, since, filters, author)
	params := listParams()

	var prs []*github.PullRequest
	if author != "" {
		params.Set("creator", author)
		issues, err := gateway.PaginateLimit[*github.Issue](ctx, call.fetcher, call.path("issues"), params, limit, 1, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				prs = append(prs, issueAsPullRequest(issue))
			}
		}
	} else {
		var err error
		prs, err = gateway.PaginateLimit[*github.PullRequest](ctx, call.fetcher, call.path("pulls"), params, limit, 1, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}
	}

	titles := []domain.PRTitle{}
	for _, pr := range prs {
		if pr.CreatedAt == nil || pr.GetCreatedAt().Before(call.since) {
			continue
		}
		if filter.FilterBot(pr.GetUser(), call.filters) {
			continue
		}
		// Issue records carry no refs, so branch filters only apply to real PR listings.
		if author == "" && !filter.PRMatchesBranchFilters(pr, call.filters) {
			continue
		}
		titles = append(titles, domain.PRTitle{
			Number:    pr.GetNumber(),
			Title:     pr.GetTitle(),
			Author:    pr.GetUser().GetLogin(),
			URL:       pr.GetHTMLURL(),
			State:     pr.GetState(),
			Additions: pr.GetAdditions(),
			Deletions: pr.GetDeletions(),
		})
		if len(titles) >= limit {
			break
		}
	}
	return titles, nil
}

// issueAsPullRequest keeps the fields an issue record shares with a pull request.
func issueAsPullRequest(issue *github.Issue) *github.PullRequest {
	return &github.PullRequest{
		Number:    issue.Number,
		Title:     issue.Title,
		User:      issue.User,
		HTMLURL:   issue.HTMLURL,
		State:     issue.State,
		CreatedAt: issue.CreatedAt,
	}
}

func prKey(number int) string {
	return fmt.Sprintf("pr-%d", number)
}

// firstPermissionError returns a permission failure among task errors, if any.
// Invalid credentials are fatal even inside an isolated batch.
func firstPermissionError(errs map[string]*apperr.Error) error {
	for _, err := range errs {
		if apperr.Has(err, apperr.KindPermission) {
			return err
		}
	}
	return nil
}
