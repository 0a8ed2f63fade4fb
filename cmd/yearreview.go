package cmd

import (
	"time"

	"github.com/naka-gawa/github-feedback/internal/usecase"
	"github.com/spf13/cobra"
)

var yearReviewCmd = &cobra.Command{
	Use:   "year-review",
	Short: "Summarises a year of activity across every repository you committed to",
	Long: `Discovers the repositories the authenticated user made commit contributions
to in a calendar year, collects each one for the user and aggregates the
results into per-repository rows and totals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		year, _ := cmd.Flags().GetInt("year")
		minContributions, _ := cmd.Flags().GetInt("min-contributions")
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		review := usecase.NewYearReview(a.gateway, a.collector, usecase.YearReviewOptions{
			Workers:          a.cfg.Parallel.YearendWorkers,
			Timeout:          a.cfg.Parallel.YearendTimeout,
			MinContributions: minContributions,
			NewReporter:      a.newReporter,
			Metrics:          a.metrics,
		}, a.logger)

		summary, err := review.Run(cmd.Context(), year, filtersFromFlags(cmd))
		if err != nil {
			return err
		}
		if format == formatTable {
			writeYearSummaryTable(cmd.OutOrStdout(), summary)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), summary)
	},
}

func init() {
	rootCmd.AddCommand(yearReviewCmd)
	yearReviewCmd.Flags().IntP("year", "y", time.Now().Year(), "Calendar year to review")
	yearReviewCmd.Flags().Int("min-contributions", 3, "Skip repositories with fewer commit contributions")
	yearReviewCmd.Flags().StringP("format", "f", formatTable, "Output format: json or table")
	addFilterFlags(yearReviewCmd)
}
