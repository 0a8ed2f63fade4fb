package gateway

import "github.com/google/go-github/v84/github"

// IssueRecord is an issue as returned by the issues listing, plus the
// optional "files" array some issue sources attach.
type IssueRecord struct {
	*github.Issue
	Files []string `json:"files,omitempty"`
}
