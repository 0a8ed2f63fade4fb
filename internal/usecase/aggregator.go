// Package usecase contains the business logic of the application.
package usecase

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/github-feedback/internal/domain"
)

// Aggregator combines per-repository collections into a year summary.
type Aggregator struct {
	logger *log.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(logger *log.Logger) *Aggregator {
	return &Aggregator{
		logger: logger,
	}
}

// Aggregate turns one collection per repository into rows sorted by
// repository name, with totals and the distribution of commits. Nil
// collections are ignored; at least one collection is required.
func (a *Aggregator) Aggregate(year int, login string, results []*domain.CollectionResult, skipped []string) (*domain.YearSummary, error) {
	a.logger.Println("Aggregating repository results...")

	rows := make([]*domain.RepoStats, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		rows = append(rows, &domain.RepoStats{
			Name:         r.Repo,
			Commits:      r.Commits,
			PullRequests: r.PullRequests,
			Reviews:      r.Reviews,
			Issues:       r.Issues,
			Incomplete:   !r.IsComplete(),
		})
	}
	if len(rows) == 0 {
		return nil, errors.New("no repository results to aggregate")
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Name < rows[j].Name
	})

	summary := &domain.YearSummary{
		Year:         year,
		Login:        login,
		Repositories: rows,
		Totals:       domain.RepoStats{Name: "total"},
		Skipped:      skipped,
	}
	commits := make(stats.Float64Data, 0, len(rows))
	for _, row := range rows {
		summary.Totals.Commits += row.Commits
		summary.Totals.PullRequests += row.PullRequests
		summary.Totals.Reviews += row.Reviews
		summary.Totals.Issues += row.Issues
		summary.Totals.Incomplete = summary.Totals.Incomplete || row.Incomplete
		commits = append(commits, float64(row.Commits))
	}

	var err error
	if summary.CommitsMedian, err = commits.Median(); err != nil {
		return nil, fmt.Errorf("failed to compute commit median: %w", err)
	}
	if summary.CommitsP90, err = commits.Percentile(90); err != nil {
		return nil, fmt.Errorf("failed to compute commit percentile: %w", err)
	}

	a.logger.Printf("Aggregation complete: %d repositories, %d skipped.", len(rows), len(skipped))
	return summary, nil
}
