// Package domain contains the core data structures and domain logic for the application.
package domain

// RepoStats holds the activity counts for a single repository.
// It is one row of a year review.
type RepoStats struct {
	Name         string `json:"name"`
	Commits      int    `json:"commits"`
	PullRequests int    `json:"pull_requests"`
	Reviews      int    `json:"reviews"`
	Issues       int    `json:"issues"`
	Incomplete   bool   `json:"incomplete,omitempty"`
}

// Total returns the sum of all activity counts.
func (s RepoStats) Total() int {
	return s.Commits + s.PullRequests + s.Reviews + s.Issues
}

// RepositoryContribution is a repository discovered through the viewer's
// contribution history, with the number of commit contributions in the range.
type RepositoryContribution struct {
	NameWithOwner string `json:"name_with_owner"`
	Commits       int    `json:"commits"`
	IsPrivate     bool   `json:"is_private"`
}

// ContributionSummary is what repository discovery returns for one calendar range.
type ContributionSummary struct {
	Login        string                   `json:"login"`
	Repositories []RepositoryContribution `json:"repositories"`
}

// YearSummary is the aggregate of one collection per repository over a year.
type YearSummary struct {
	Year         int          `json:"year"`
	Login        string       `json:"login"`
	Repositories []*RepoStats `json:"repositories"`
	Totals       RepoStats    `json:"totals"`

	// Distribution of commits across repositories.
	CommitsMedian float64  `json:"commits_median"`
	CommitsP90    float64  `json:"commits_p90"`
	Skipped       []string `json:"skipped,omitempty"`
}
