package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/naka-gawa/github-feedback/internal/filter"
	"github.com/naka-gawa/github-feedback/internal/gateway"
)

// CountIssues counts issues (not pull requests) updated since the given time
// that pass the bot and file filters. An issue's files come from its "files"
// field and its "path:"/"file:" labels.
func (c *Collector) CountIssues(ctx context.Context, repo string, since time.Time, filters *domain.AnalysisFilters, author string) (int, error) {
	return c.newCall(repo, since, filters, author).countIssues(ctx)
}

func (call *collectCall) countIssues(ctx context.Context) (int, error) {
	params := listParams()
	params.Set("since", call.sinceParam())
	if call.author != "" {
		params.Set("creator", call.author)
	}
	issues, err := gateway.PaginateLimit[*gateway.IssueRecord](ctx, call.fetcher, call.path("issues"), params, call.opts.PerPage, call.opts.MaxPages, nil)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, issue := range issues {
		if issue.Issue == nil || issue.IsPullRequest() {
			continue
		}
		if filter.FilterBot(issue.GetUser(), call.filters) {
			continue
		}
		if !filter.ApplyFileFilters(filter.IssueFiles(issue.Labels, issue.Files), call.filters) {
			continue
		}
		total++
	}
	return total, nil
}

// CollectIssueDetails returns up to limit issues from the first page of
// issues updated since the given time.
func (c *Collector) CollectIssueDetails(ctx context.Context, repo string, since time.Time, filters *domain.AnalysisFilters, limit int, author string) ([]domain.IssueDetail, error) {
	call := c.newCall(repo, since, filters, author)
	params := listParams()
	params.Set("since", call.sinceParam())
	if author != "" {
		params.Set("creator", author)
	}
	issues, err := gateway.PaginateLimit[*gateway.IssueRecord](ctx, call.fetcher, call.path("issues"), params, limit, 1, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	details := []domain.IssueDetail{}
	for _, issue := range issues {
		if issue.Issue == nil || issue.IsPullRequest() {
			continue
		}
		if filter.FilterBot(issue.GetUser(), call.filters) {
			continue
		}
		details = append(details, domain.IssueDetail{
			Number:    issue.GetNumber(),
			Title:     issue.GetTitle(),
			Body:      issue.GetBody(),
			Author:    issue.GetUser().GetLogin(),
			URL:       issue.GetHTMLURL(),
			State:     issue.GetState(),
			CreatedAt: issue.GetCreatedAt().Time,
		})
		if len(details) >= limit {
			break
		}
	}
	return details, nil
}
