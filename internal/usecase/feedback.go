package usecase

import (
	"context"
	"fmt"
	"log"
	"maps"
	"slices"
	"time"

	"github.com/naka-gawa/github-feedback/internal/apperr"
	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/naka-gawa/github-feedback/internal/orchestrator"
)

// Analyzer turns a batch of collected items into written feedback.
type Analyzer interface {
	Analyze(ctx context.Context, kind string, items any) (*domain.Analysis, error)
}

// FeedbackLimits caps how many items of each kind are collected.
type FeedbackLimits struct {
	CommitMessages int
	PRTitles       int
	ReviewComments int
	Issues         int
}

// FeedbackOptions configures the two parallel phases of a FeedbackWorkflow.
type FeedbackOptions struct {
	Limits            FeedbackLimits
	CollectionWorkers int
	CollectionTimeout time.Duration
	AnalysisWorkers   int
	AnalysisTimeout   time.Duration
	NewReporter       func(label string, total int) orchestrator.Reporter
	Metrics           *orchestrator.Metrics
}

// FeedbackWorkflow collects commit messages, PR titles, review comments and
// issues in parallel and then asks an Analyzer for feedback on each.
type FeedbackWorkflow struct {
	collector *Collector
	analyzer  Analyzer
	opts      FeedbackOptions
	logger    *log.Logger
}

// DefaultFeedbackLimits are the per-kind caps used when none are configured.
var DefaultFeedbackLimits = FeedbackLimits{
	CommitMessages: 100,
	PRTitles:       100,
	ReviewComments: 100,
	Issues:         100,
}

// NewFeedbackWorkflow creates a new FeedbackWorkflow instance.
func NewFeedbackWorkflow(collector *Collector, analyzer Analyzer, opts FeedbackOptions, logger *log.Logger) *FeedbackWorkflow {
	if opts.Limits.CommitMessages <= 0 {
		opts.Limits.CommitMessages = DefaultFeedbackLimits.CommitMessages
	}
	if opts.Limits.PRTitles <= 0 {
		opts.Limits.PRTitles = DefaultFeedbackLimits.PRTitles
	}
	if opts.Limits.ReviewComments <= 0 {
		opts.Limits.ReviewComments = DefaultFeedbackLimits.ReviewComments
	}
	if opts.Limits.Issues <= 0 {
		opts.Limits.Issues = DefaultFeedbackLimits.Issues
	}
	return &FeedbackWorkflow{
		collector: collector,
		analyzer:  analyzer,
		opts:      opts,
		logger:    logger,
	}
}

func (w *FeedbackWorkflow) reporter(label string, total int) orchestrator.Reporter {
	if w.opts.NewReporter == nil {
		return orchestrator.NopReporter{}
	}
	return w.opts.NewReporter(label, total)
}

// Run collects and analyses feedback for repo over the last months. A failed
// or timed out part leaves its items empty or its analysis nil and adds a
// warning; only cancellation and permission errors abort the run.
func (w *FeedbackWorkflow) Run(ctx context.Context, repo string, months int, filters *domain.AnalysisFilters, author string) (*domain.DetailedFeedback, error) {
	since := WindowStart(w.collector.opts.Now().UTC(), months)
	limits := w.opts.Limits
	c := w.collector.withoutProgress()

	w.logger.Println("[1/2] Collecting feedback data in parallel...")
	collection := map[string]orchestrator.Task[any]{
		"commits": {Label: "commit messages", Fn: func(ctx context.Context) (any, error) {
			return c.CollectCommitMessages(ctx, repo, since, filters, limits.CommitMessages, author)
		}},
		"pr_titles": {Label: "PR titles", Fn: func(ctx context.Context) (any, error) {
			return c.CollectPRTitles(ctx, repo, since, filters, limits.PRTitles, author)
		}},
		"review_comments": {Label: "review comments", Fn: func(ctx context.Context) (any, error) {
			return c.CollectReviewComments(ctx, repo, since, filters, limits.ReviewComments, author)
		}},
		"issues": {Label: "issues", Fn: func(ctx context.Context) (any, error) {
			return c.CollectIssueDetails(ctx, repo, since, filters, limits.Issues, author)
		}},
	}
	collected, err := orchestrator.RunParallelTasks(ctx, collection, orchestrator.Options{
		MaxWorkers: w.opts.CollectionWorkers,
		Timeout:    w.opts.CollectionTimeout,
		Kind:       orchestrator.Collection,
		Logger:     w.logger,
		Reporter:   w.reporter("Collecting", len(collection)),
		Metrics:    w.opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := firstPermissionError(collected.Errors); err != nil {
		return nil, err
	}

	feedback := &domain.DetailedFeedback{
		Repo:           repo,
		CommitMessages: nonNil(orchestrator.As[[]domain.CommitMessage](collected, "commits")),
		PRTitles:       nonNil(orchestrator.As[[]domain.PRTitle](collected, "pr_titles")),
		ReviewComments: nonNil(orchestrator.As[[]domain.ReviewComment](collected, "review_comments")),
		Issues:         nonNil(orchestrator.As[[]domain.IssueDetail](collected, "issues")),
		Warnings:       warnings(collected.Errors),
	}
	if w.analyzer == nil {
		return feedback, nil
	}

	w.logger.Println("[2/2] Analyzing feedback in parallel...")
	analyze := func(label, kind string, items any) orchestrator.Task[*domain.Analysis] {
		return orchestrator.Task[*domain.Analysis]{Label: label, Fn: func(ctx context.Context) (*domain.Analysis, error) {
			return w.analyzer.Analyze(ctx, kind, items)
		}}
	}
	development := domain.PersonalDevelopmentInput{
		PRTitles:       feedback.PRTitles,
		ReviewComments: feedback.ReviewComments,
	}
	analysis := map[string]orchestrator.Task[*domain.Analysis]{
		domain.AnalysisCommitMessages:      analyze("commit message analysis", domain.AnalysisCommitMessages, feedback.CommitMessages),
		domain.AnalysisPRTitles:            analyze("PR title analysis", domain.AnalysisPRTitles, feedback.PRTitles),
		domain.AnalysisReviewTone:          analyze("review tone analysis", domain.AnalysisReviewTone, feedback.ReviewComments),
		domain.AnalysisIssueQuality:        analyze("issue analysis", domain.AnalysisIssueQuality, feedback.Issues),
		domain.AnalysisPersonalDevelopment: analyze("personal development analysis", domain.AnalysisPersonalDevelopment, development),
	}
	analysed, err := orchestrator.RunParallelTasks(ctx, analysis, orchestrator.Options{
		MaxWorkers: w.opts.AnalysisWorkers,
		Timeout:    w.opts.AnalysisTimeout,
		Kind:       orchestrator.Analysis,
		Logger:     w.logger,
		Reporter:   w.reporter("Analyzing", len(analysis)),
		Metrics:    w.opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := firstPermissionError(analysed.Errors); err != nil {
		return nil, err
	}

	feedback.CommitAnalysis = analysed.Values[domain.AnalysisCommitMessages]
	feedback.PRTitleAnalysis = analysed.Values[domain.AnalysisPRTitles]
	feedback.ReviewToneAnalysis = analysed.Values[domain.AnalysisReviewTone]
	feedback.IssueAnalysis = analysed.Values[domain.AnalysisIssueQuality]
	feedback.PersonalDevelopment = analysed.Values[domain.AnalysisPersonalDevelopment]
	feedback.Warnings = append(feedback.Warnings, warnings(analysed.Errors)...)
	return feedback, nil
}

// warnings describes each failed task, ordered by key.
func warnings(errs map[string]*apperr.Error) []string {
	var out []string
	for _, key := range slices.Sorted(maps.Keys(errs)) {
		err := errs[key]
		if err.Kind == apperr.KindTimeout {
			out = append(out, fmt.Sprintf("%s timed out", err.Op))
			continue
		}
		out = append(out, fmt.Sprintf("%s failed: %v", err.Op, err.Err))
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
