package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/naka-gawa/github-feedback/internal/domain"
)

const noDataContent = "No data to analyze."

// completer is the part of Client the Analyzer needs.
type completer interface {
	Complete(ctx context.Context, operation string, messages []Message) (string, error)
}

type prompt struct {
	system string
	// user is a format string taking the formatted items.
	user       string
	sampleSize int
}

var prompts = map[string]prompt{
	domain.AnalysisCommitMessages: {
		system:     "You review commit messages. Judge whether each message states what changed and why, and give concrete suggestions for improvement.",
		user:       "Analyze these commit messages:\n\n%s",
		sampleSize: 20,
	},
	domain.AnalysisPRTitles: {
		system:     "You review pull request titles. Judge whether each title is clear and specific about the change.",
		user:       "Analyze these pull request titles:\n\n%s",
		sampleSize: 20,
	},
	domain.AnalysisReviewTone: {
		system:     "You review the tone of code review comments. Classify them as constructive, neutral or harsh and suggest better phrasing where needed.",
		user:       "Analyze these review comments:\n\n%s",
		sampleSize: 15,
	},
	domain.AnalysisIssueQuality: {
		system:     "You review GitHub issues. Judge whether each issue has enough context, reproduction steps and a clear expected outcome.",
		user:       "Analyze these issues:\n\n%s",
		sampleSize: 15,
	},
	domain.AnalysisPersonalDevelopment: {
		system:     "You are a mentor. From a developer's pull requests and review comments, describe their strengths, areas to improve and signs of growth.",
		user:       "Summarize the personal development of this contributor:\n\n%s",
		sampleSize: 20,
	},
}

// Analyzer asks the LLM for written feedback on collected items.
type Analyzer struct {
	client completer
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze formats items for kind and returns the model's answer. An empty
// batch is answered without calling the model.
func (a *Analyzer) Analyze(ctx context.Context, kind string, items any) (*domain.Analysis, error) {
	p, ok := prompts[kind]
	if !ok {
		return nil, fmt.Errorf("unknown analysis kind %q", kind)
	}
	data, n, err := formatItems(items, p.sampleSize)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return &domain.Analysis{Kind: kind, Content: noDataContent}, nil
	}

	content, err := a.client.Complete(ctx, kind, []Message{
		System(p.system),
		User(fmt.Sprintf(p.user, data)),
	})
	if err != nil {
		return nil, err
	}
	return &domain.Analysis{Kind: kind, Content: content}, nil
}

// formatItems renders up to limit items as a numbered list and returns how
// many were rendered.
func formatItems(items any, limit int) (string, int, error) {
	var lines []string
	add := func(format string, args ...any) bool {
		if len(lines) >= limit {
			return false
		}
		lines = append(lines, fmt.Sprintf("%d. ", len(lines)+1)+fmt.Sprintf(format, args...))
		return true
	}

	switch v := items.(type) {
	case []domain.CommitMessage:
		for _, c := range v {
			if !add("%s (SHA: %s)", truncate(firstLine(c.Message), 100), truncate(c.SHA, 7)) {
				break
			}
		}
	case []domain.PRTitle:
		for _, pr := range v {
			if !add("#%d: %s", pr.Number, pr.Title) {
				break
			}
		}
	case []domain.ReviewComment:
		for _, rc := range v {
			if !add("(PR #%d, %s): %s", rc.PRNumber, rc.Author, truncate(rc.Body, 200)) {
				break
			}
		}
	case []domain.IssueDetail:
		for _, issue := range v {
			if !add("#%d: %s\n   Body: %s", issue.Number, issue.Title, truncate(issue.Body, 150)) {
				break
			}
		}
	case domain.PersonalDevelopmentInput:
		titles, nt, _ := formatItems(v.PRTitles, limit)
		reviews, nr, _ := formatItems(v.ReviewComments, limit)
		if nt+nr == 0 {
			return "", 0, nil
		}
		return "Pull requests:\n" + titles + "\n\nReview comments:\n" + reviews, nt + nr, nil
	default:
		return "", 0, fmt.Errorf("unsupported items type %T", items)
	}
	return strings.Join(lines, "\n"), len(lines), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
