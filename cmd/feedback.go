package cmd

import (
	"github.com/naka-gawa/github-feedback/internal/usecase"
	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Collects commit messages, PR titles, reviews and issues and asks an LLM for feedback",
	Long: `Collects recent commit messages, pull request titles, review comments and
issues from a repository, then asks the configured LLM endpoint (llm.endpoint)
for feedback on each. Parts that fail or time out are reported as warnings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoFlag, _ := cmd.Flags().GetString("repo")
		months, _ := cmd.Flags().GetInt("months")
		author, _ := cmd.Flags().GetString("author")
		skipAnalysis, _ := cmd.Flags().GetBool("no-analysis")

		repo, err := parseRepo(repoFlag)
		if err != nil {
			return err
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		var analyzer usecase.Analyzer
		if !skipAnalysis {
			llmAnalyzer, err := a.newAnalyzer()
			if err != nil {
				return err
			}
			analyzer = llmAnalyzer
		}

		workflow := usecase.NewFeedbackWorkflow(a.collector, analyzer, usecase.FeedbackOptions{
			Limits: usecase.FeedbackLimits{
				CommitMessages: a.cfg.Limits.CommitMessages,
				PRTitles:       a.cfg.Limits.PRTitles,
				ReviewComments: a.cfg.Limits.ReviewComments,
				Issues:         a.cfg.Limits.Issues,
			},
			CollectionWorkers: a.cfg.Parallel.CollectionWorkers,
			CollectionTimeout: a.cfg.Parallel.CollectionTimeout,
			AnalysisWorkers:   a.cfg.Parallel.AnalysisWorkers,
			AnalysisTimeout:   a.cfg.Parallel.AnalysisTimeout,
			NewReporter:       a.newReporter,
			Metrics:           a.metrics,
		}, a.logger)

		feedback, err := workflow.Run(cmd.Context(), repo, months, filtersFromFlags(cmd), author)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), feedback)
	},
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.Flags().StringP("repo", "r", "", "Target repository as owner/name (required)")
	feedbackCmd.Flags().IntP("months", "m", 12, "Number of 30-day months to look back")
	feedbackCmd.Flags().StringP("author", "a", "", "Only collect items by this GitHub login")
	feedbackCmd.Flags().Bool("no-analysis", false, "Only collect items; do not call the LLM")
	addFilterFlags(feedbackCmd)
	_ = feedbackCmd.MarkFlagRequired("repo")
}
