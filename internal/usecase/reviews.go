package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/naka-gawa/github-feedback/internal/filter"
	"github.com/naka-gawa/github-feedback/internal/gateway"
	"github.com/naka-gawa/github-feedback/internal/orchestrator"
)

// FilteredPRSet is the read-only set of pull requests whose reviews are to
// be fetched. It can only be built by the sequential filtering phase, which
// is the only code allowed to touch the per-call file cache; review tasks are
// built from it and never see the cache.
type FilteredPRSet struct {
	repo    string
	numbers []int
}

// Len returns the number of pull requests in the set.
func (s FilteredPRSet) Len() int {
	return len(s.numbers)
}

// Numbers returns a copy of the PR numbers in listing order.
func (s FilteredPRSet) Numbers() []int {
	return slices.Clone(s.numbers)
}

// ReviewTally is the outcome of a parallel review count.
type ReviewTally struct {
	Total int
	// Failed holds the labels of PRs whose reviews could not be fetched; they count as zero.
	Failed []string
}

// CountReviews counts reviews submitted since the given time on the pull
// requests that pass the branch and file filters.
func (c *Collector) CountReviews(ctx context.Context, repo string, prs []*github.PullRequest, since time.Time, filters *domain.AnalysisFilters) (*ReviewTally, error) {
	return c.newCall(repo, since, filters, "").countReviews(ctx, prs)
}

func (call *collectCall) countReviews(ctx context.Context, prs []*github.PullRequest) (*ReviewTally, error) {
	set, err := call.filterForReviews(ctx, prs)
	if err != nil {
		return nil, err
	}

	tasks := reviewCountTasks(call.fetcher, set, call.since, *call.filters, call.opts.PerPage, call.opts.MaxPages)
	res, err := orchestrator.RunParallelTasks(ctx, tasks, orchestrator.Options{
		MaxWorkers: call.opts.ReviewWorkers,
		Timeout:    call.opts.ReviewTimeout,
		Kind:       orchestrator.Collection,
		Logger:     call.logger,
		Reporter:   call.reporter("Counting reviews", len(tasks)),
		Metrics:    call.opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := firstPermissionError(res.Errors); err != nil {
		return nil, err
	}

	tally := &ReviewTally{}
	for _, n := range res.Values {
		tally.Total += n
	}
	for key, err := range res.Errors {
		call.logger.Printf("  Failed to fetch reviews for %s: %v", key, err)
		tally.Failed = append(tally.Failed, err.Op)
	}
	slices.Sort(tally.Failed)
	return tally, nil
}

// filterForReviews applies branch and file filters sequentially. File lists
// fetched here land in the call cache.
func (call *collectCall) filterForReviews(ctx context.Context, prs []*github.PullRequest) (FilteredPRSet, error) {
	set := FilteredPRSet{repo: call.repo}
	for _, pr := range prs {
		if !filter.PRMatchesBranchFilters(pr, call.filters) {
			continue
		}
		ok, err := call.prMatchesFileFilters(ctx, pr.GetNumber())
		if err != nil {
			return FilteredPRSet{}, err
		}
		if ok {
			set.numbers = append(set.numbers, pr.GetNumber())
		}
	}
	return set, nil
}

// reviewCountTasks builds one task per PR in set. Each task paginates the
// PR's reviews and returns how many were submitted since the window start by
// a non-excluded author. A review without a submission time is counted.
func reviewCountTasks(fetcher gateway.Fetcher, set FilteredPRSet, since time.Time, filters domain.AnalysisFilters, perPage, maxPages int) map[string]orchestrator.Task[int] {
	tasks := make(map[string]orchestrator.Task[int], set.Len())
	for _, n := range set.numbers {
		path := fmt.Sprintf("repos/%s/pulls/%d/reviews", set.repo, n)
		tasks[prKey(n)] = orchestrator.Task[int]{
			Label: fmt.Sprintf("reviews for PR #%d", n),
			Fn: func(ctx context.Context) (int, error) {
				reviews, err := gateway.PaginateLimit[*github.PullRequestReview](ctx, fetcher, path, nil, perPage, maxPages, nil)
				if err != nil {
					return 0, err
				}
				count := 0
				for _, r := range reviews {
					if r.SubmittedAt != nil && r.GetSubmittedAt().Before(since) {
						continue
					}
					if filter.FilterBot(r.GetUser(), &filters) {
						continue
					}
					count++
				}
				return count, nil
			},
		}
	}
	return tasks
}

// CollectReviewComments returns up to limit non-empty review bodies from the
// pull requests created since the given time, fetched in parallel per PR.
func (c *Collector) CollectReviewComments(ctx context.Context, repo string, since time.Time, filters *domain.AnalysisFilters, limit int, author string) ([]domain.ReviewComment, error) {
	const scanSize = 50
	call := c.newCall(repo, since, filters, author)
	params := listParams()

	set := FilteredPRSet{repo: repo}
	if author != "" {
		params.Set("creator", author)
		issues, err := gateway.PaginateLimit[*github.Issue](ctx, call.fetcher, call.path("issues"), params, scanSize, 1, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() && issue.CreatedAt != nil && !issue.GetCreatedAt().Before(call.since) && issue.GetNumber() != 0 {
				set.numbers = append(set.numbers, issue.GetNumber())
			}
		}
	} else {
		sinceTime := call.since
		prs, err := gateway.PaginateLimit(ctx, call.fetcher, call.path("pulls"), params, scanSize, 1, func(pr *github.PullRequest) bool {
			return pr.GetCreatedAt().Before(sinceTime)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}
		for _, pr := range prs {
			if pr.GetNumber() != 0 {
				set.numbers = append(set.numbers, pr.GetNumber())
			}
		}
	}
	if set.Len() > limit {
		set.numbers = set.numbers[:limit]
	}

	tasks := reviewCommentTasks(call.fetcher, set, *call.filters)
	res, err := orchestrator.RunParallelTasks(ctx, tasks, orchestrator.Options{
		MaxWorkers: call.opts.ReviewWorkers,
		Timeout:    call.opts.ReviewTimeout,
		Kind:       orchestrator.Collection,
		Logger:     call.logger,
		Reporter:   call.reporter("Fetching review comments", len(tasks)),
		Metrics:    call.opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := firstPermissionError(res.Errors); err != nil {
		return nil, err
	}

	comments := []domain.ReviewComment{}
	for _, n := range set.numbers {
		for _, rc := range res.Values[prKey(n)] {
			if len(comments) >= limit {
				return comments, nil
			}
			comments = append(comments, rc)
		}
	}
	return comments, nil
}

func reviewCommentTasks(fetcher gateway.Fetcher, set FilteredPRSet, filters domain.AnalysisFilters) map[string]orchestrator.Task[[]domain.ReviewComment] {
	tasks := make(map[string]orchestrator.Task[[]domain.ReviewComment], set.Len())
	for _, n := range set.numbers {
		path := fmt.Sprintf("repos/%s/pulls/%d/reviews", set.repo, n)
		tasks[prKey(n)] = orchestrator.Task[[]domain.ReviewComment]{
			Label: fmt.Sprintf("review comments for PR #%d", n),
			Fn: func(ctx context.Context) ([]domain.ReviewComment, error) {
				reviews, err := gateway.PaginateLimit[*github.PullRequestReview](ctx, fetcher, path, nil, gateway.DefaultPerPage, 1, nil)
				if err != nil {
					return nil, err
				}
				var out []domain.ReviewComment
				for _, r := range reviews {
					body := strings.TrimSpace(r.GetBody())
					if body == "" || filter.FilterBot(r.GetUser(), &filters) {
						continue
					}
					out = append(out, domain.ReviewComment{
						PRNumber:    n,
						Author:      r.GetUser().GetLogin(),
						Body:        body,
						State:       r.GetState(),
						SubmittedAt: r.GetSubmittedAt().Time,
						URL:         r.GetHTMLURL(),
					})
				}
				return out, nil
			},
		}
	}
	return tasks
}
