package usecase

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/naka-gawa/github-feedback/internal/filter"
	"github.com/naka-gawa/github-feedback/internal/gateway"
)

// defaultBranch stands for "no sha parameter", i.e. the repository's default branch.
const defaultBranch = ""

// CountCommits counts distinct commits in repo since the given time that pass
// filters. A commit reachable from several branches or matching several
// include paths is counted once.
func (c *Collector) CountCommits(ctx context.Context, repo string, since time.Time, filters *domain.AnalysisFilters, author string) (int, error) {
	return c.newCall(repo, since, filters, author).countCommits(ctx)
}

// branches resolves which branches to scan: the include list minus the
// exclude list, every branch minus the exclude list, or the default branch.
func (call *collectCall) branches(ctx context.Context) ([]string, error) {
	f := call.filters
	if len(f.IncludeBranches) > 0 {
		var out []string
		for _, b := range f.IncludeBranches {
			if !slices.Contains(f.ExcludeBranches, b) {
				out = append(out, b)
			}
		}
		return out, nil
	}
	if len(f.ExcludeBranches) == 0 {
		return []string{defaultBranch}, nil
	}

	all, err := gateway.PaginateLimit[*github.Branch](ctx, call.fetcher, call.path("branches"), nil, call.opts.PerPage, call.opts.MaxPages, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	var out []string
	for _, b := range all {
		if name := b.GetName(); name != "" && !slices.Contains(f.ExcludeBranches, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

func (call *collectCall) countCommits(ctx context.Context) (int, error) {
	branches, err := call.branches(ctx)
	if err != nil {
		return 0, err
	}
	paths := call.filters.IncludePaths
	if len(paths) == 0 {
		paths = []string{""}
	}

	seen := make(map[string]struct{})
	total := 0
	for _, branch := range branches {
		for _, p := range paths {
			params := url.Values{"since": {call.sinceParam()}}
			if branch != defaultBranch {
				params.Set("sha", branch)
			}
			if p != "" {
				params.Set("path", p)
			}
			if call.author != "" {
				params.Set("author", call.author)
			}

			commits, err := gateway.PaginateLimit[*github.RepositoryCommit](ctx, call.fetcher, call.path("commits"), params, call.opts.PerPage, call.opts.MaxPages, nil)
			if err != nil {
				return 0, err
			}
			for _, commit := range commits {
				if filter.FilterBot(commit.GetAuthor(), call.filters) {
					continue
				}
				sha := commit.GetSHA()
				if sha == "" {
					continue
				}
				if _, ok := seen[sha]; ok {
					continue
				}
				if call.filters.HasFileFilters() {
					ok, err := call.commitMatchesPathFilters(ctx, sha)
					if err != nil {
						return 0, err
					}
					if !ok {
						continue
					}
				}
				seen[sha] = struct{}{}
				total++
			}
		}
	}
	call.logger.Printf("  %d commits across %d branch(es)", total, len(branches))
	return total, nil
}

// commitMatchesPathFilters fetches the commit's file list once per call.
func (call *collectCall) commitMatchesPathFilters(ctx context.Context, sha string) (bool, error) {
	files, ok := call.commitFiles[sha]
	if !ok {
		var detail github.RepositoryCommit
		if err := call.fetcher.Get(ctx, call.path("commits/%s", sha), nil, &detail); err != nil {
			return false, err
		}
		for _, f := range detail.Files {
			files = append(files, f.GetFilename())
		}
		call.commitFiles[sha] = files
	}
	return filter.ApplyFileFilters(files, call.filters), nil
}

// CollectCommitMessages returns up to limit distinct commit messages from the
// resolved branches, newest first per branch.
func (c *Collector) CollectCommitMessages(ctx context.Context, repo string, since time.Time, filters *domain.AnalysisFilters, limit int, author string) ([]domain.CommitMessage, error) {
	call := c.newCall(repo, since, filters, author)
	branches, err := call.branches(ctx)
	if err != nil {
		return nil, err
	}

	messages := []domain.CommitMessage{}
	seen := make(map[string]struct{})
	for _, branch := range branches {
		if len(messages) >= limit {
			break
		}
		params := url.Values{"since": {call.sinceParam()}}
		if branch != defaultBranch {
			params.Set("sha", branch)
		}
		if author != "" {
			params.Set("author", author)
		}
		commits, err := gateway.PaginateLimit[*github.RepositoryCommit](ctx, call.fetcher, call.path("commits"), params, min(gateway.DefaultPerPage, limit-len(messages)), 1, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list commits: %w", err)
		}
		for _, commit := range commits {
			sha := commit.GetSHA()
			if _, ok := seen[sha]; ok {
				continue
			}
			seen[sha] = struct{}{}
			if filter.FilterBot(commit.GetAuthor(), call.filters) {
				continue
			}
			messages = append(messages, domain.CommitMessage{
				SHA:     sha,
				Message: commit.GetCommit().GetMessage(),
				Author:  commit.GetCommit().GetAuthor().GetName(),
				Date:    commit.GetCommit().GetAuthor().GetDate().Time,
			})
			if len(messages) >= limit {
				break
			}
		}
	}
	return messages, nil
}
