package domain

import "time"

// CommitMessage is one commit collected for message quality analysis.
type CommitMessage struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// PRTitle is one pull request collected for title clarity analysis.
type PRTitle struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	URL       string `json:"url"`
	State     string `json:"state"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// ReviewComment is one non-empty review body collected for tone analysis.
type ReviewComment struct {
	PRNumber    int       `json:"pr_number"`
	Author      string    `json:"author"`
	Body        string    `json:"body"`
	State       string    `json:"state"`
	SubmittedAt time.Time `json:"submitted_at"`
	URL         string    `json:"url"`
}

// IssueDetail is one issue collected for quality analysis.
type IssueDetail struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis kinds, one per analysis task of a feedback run.
const (
	AnalysisCommitMessages      = "commit_messages"
	AnalysisPRTitles            = "pr_titles"
	AnalysisReviewTone          = "review_tone"
	AnalysisIssueQuality        = "issue_quality"
	AnalysisPersonalDevelopment = "personal_development"
)

// PersonalDevelopmentInput is what the personal development analysis sees.
type PersonalDevelopmentInput struct {
	PRTitles       []PRTitle       `json:"pr_titles"`
	ReviewComments []ReviewComment `json:"review_comments"`
}

// Analysis is the text an LLM produced for one kind of feedback.
type Analysis struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// DetailedFeedback bundles the collected items and their analyses.
// An analysis that failed or timed out is nil.
type DetailedFeedback struct {
	Repo                string          `json:"repo"`
	CommitMessages      []CommitMessage `json:"commit_messages"`
	PRTitles            []PRTitle       `json:"pr_titles"`
	ReviewComments      []ReviewComment `json:"review_comments"`
	Issues              []IssueDetail   `json:"issues"`
	CommitAnalysis      *Analysis       `json:"commit_analysis,omitempty"`
	PRTitleAnalysis     *Analysis       `json:"pr_title_analysis,omitempty"`
	ReviewToneAnalysis  *Analysis       `json:"review_tone_analysis,omitempty"`
	IssueAnalysis       *Analysis       `json:"issue_analysis,omitempty"`
	PersonalDevelopment *Analysis       `json:"personal_development,omitempty"`
	Warnings            []string        `json:"warnings,omitempty"`
}
