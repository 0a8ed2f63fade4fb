package domain

import "time"

// MaxPullRequestExamples caps CollectionResult.PullRequestExamples.
const MaxPullRequestExamples = 5

// PullRequestSummary is a lightweight snapshot of a pull request for reporting.
type PullRequestSummary struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	HTMLURL   string     `json:"html_url"`
	CreatedAt time.Time  `json:"created_at"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// CollectionResult is the post-filter, de-duplicated summary of one repository
// over one window.
type CollectionResult struct {
	Repo                string               `json:"repo"`
	Months              int                  `json:"months"`
	CollectedAt         time.Time            `json:"collected_at"`
	Commits             int                  `json:"commits"`
	PullRequests        int                  `json:"pull_requests"`
	Reviews             int                  `json:"reviews"`
	Issues              int                  `json:"issues"`
	Filters             AnalysisFilters      `json:"filters"`
	PullRequestExamples []PullRequestSummary `json:"pull_request_examples"`
	SinceDate           *time.Time           `json:"since_date,omitempty"`
	UntilDate           *time.Time           `json:"until_date,omitempty"`

	// Incomplete lists the parts that may be undercounted because some
	// isolated sub-requests failed or timed out.
	Incomplete []string `json:"incomplete,omitempty"`
}

// HasActivity reports whether any of the counts is positive.
func (r *CollectionResult) HasActivity() bool {
	return r.Commits > 0 || r.PullRequests > 0 || r.Reviews > 0 || r.Issues > 0
}

// IsComplete reports whether every count was computed without isolated failures.
func (r *CollectionResult) IsComplete() bool {
	return len(r.Incomplete) == 0
}
