package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	calls    int
	messages []Message
	content  string
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, operation string, messages []Message) (string, error) {
	f.calls++
	f.messages = messages
	return f.content, f.err
}

func TestAnalyzer_Analyze(t *testing.T) {
	testCases := []struct {
		name         string
		kind         string
		items        any
		expectedUser []string
	}{
		{
			name: "commit messages use the first line and a short SHA",
			kind: domain.AnalysisCommitMessages,
			items: []domain.CommitMessage{
				{SHA: "0123456789abcdef", Message: "fix: handle empty pages\n\nlong body"},
			},
			expectedUser: []string{"1. fix: handle empty pages (SHA: 0123456)"},
		},
		{
			name:         "pull request titles",
			kind:         domain.AnalysisPRTitles,
			items:        []domain.PRTitle{{Number: 7, Title: "Add year review"}, {Number: 8, Title: "Fix typo"}},
			expectedUser: []string{"1. #7: Add year review", "2. #8: Fix typo"},
		},
		{
			name:         "review comments",
			kind:         domain.AnalysisReviewTone,
			items:        []domain.ReviewComment{{PRNumber: 3, Author: "bob", Body: "Nice"}},
			expectedUser: []string{"1. (PR #3, bob): Nice"},
		},
		{
			name:         "issues",
			kind:         domain.AnalysisIssueQuality,
			items:        []domain.IssueDetail{{Number: 9, Title: "Crash", Body: "Steps to reproduce"}},
			expectedUser: []string{"1. #9: Crash\n   Body: Steps to reproduce"},
		},
		{
			name: "personal development combines titles and reviews",
			kind: domain.AnalysisPersonalDevelopment,
			items: domain.PersonalDevelopmentInput{
				PRTitles:       []domain.PRTitle{{Number: 1, Title: "Refactor"}},
				ReviewComments: []domain.ReviewComment{{PRNumber: 1, Author: "amy", Body: "LGTM"}},
			},
			expectedUser: []string{"Pull requests:\n1. #1: Refactor", "Review comments:\n1. (PR #1, amy): LGTM"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeCompleter{content: "feedback"}
			analyzer := &Analyzer{client: fake}

			analysis, err := analyzer.Analyze(context.Background(), tc.kind, tc.items)
			require.NoError(t, err)
			assert.Equal(t, &domain.Analysis{Kind: tc.kind, Content: "feedback"}, analysis)
			require.Equal(t, 1, fake.calls)
			require.Len(t, fake.messages, 2)
			assert.Equal(t, "system", fake.messages[0].Role)
			for _, want := range tc.expectedUser {
				assert.Contains(t, fake.messages[1].Content, want)
			}
		})
	}
}

func TestAnalyzer_Analyze_EmptyBatchSkipsModel(t *testing.T) {
	fake := &fakeCompleter{}
	analyzer := &Analyzer{client: fake}

	analysis, err := analyzer.Analyze(context.Background(), domain.AnalysisIssueQuality, []domain.IssueDetail{})
	require.NoError(t, err)
	assert.Equal(t, noDataContent, analysis.Content)
	assert.Zero(t, fake.calls)
}

func TestAnalyzer_Analyze_SampleSize(t *testing.T) {
	fake := &fakeCompleter{content: "ok"}
	analyzer := &Analyzer{client: fake}

	var comments []domain.ReviewComment
	for i := range 40 {
		comments = append(comments, domain.ReviewComment{PRNumber: i, Author: "a", Body: strings.Repeat("x", 300)})
	}
	_, err := analyzer.Analyze(context.Background(), domain.AnalysisReviewTone, comments)
	require.NoError(t, err)
	user := fake.messages[1].Content
	assert.Contains(t, user, "15. ")
	assert.NotContains(t, user, "16. ")
	assert.NotContains(t, user, strings.Repeat("x", 201))
}

func TestAnalyzer_Analyze_Errors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		_, err := (&Analyzer{client: &fakeCompleter{}}).Analyze(context.Background(), "haiku", []domain.PRTitle{})
		assert.Error(t, err)
	})
	t.Run("unsupported items", func(t *testing.T) {
		_, err := (&Analyzer{client: &fakeCompleter{}}).Analyze(context.Background(), domain.AnalysisPRTitles, "titles")
		assert.Error(t, err)
	})
	t.Run("model failure", func(t *testing.T) {
		_, err := (&Analyzer{client: &fakeCompleter{err: errors.New("down")}}).Analyze(context.Background(), domain.AnalysisPRTitles, []domain.PRTitle{{Number: 1}})
		assert.EqualError(t, err, "down")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "hi", truncate("hi", 4))
}
