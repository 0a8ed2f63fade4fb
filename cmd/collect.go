package cmd

import (
	"github.com/naka-gawa/github-feedback/internal/usecase"
	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Counts repository activity and outputs it as JSON or a table",
	Long: `Counts commits, pull requests, reviews and issues in a repository over the
last N months (a month is 30 days), applying the branch, path, language and
bot filters. With --author only that user's activity is counted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoFlag, _ := cmd.Flags().GetString("repo")
		months, _ := cmd.Flags().GetInt("months")
		author, _ := cmd.Flags().GetString("author")
		format, _ := cmd.Flags().GetString("format")

		repo, err := parseRepo(repoFlag)
		if err != nil {
			return err
		}
		if err := checkFormat(format); err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		var opts []usecase.CollectOption
		if author != "" {
			opts = append(opts, usecase.WithAuthor(author))
		}

		result, err := a.collector.Collect(cmd.Context(), repo, months, filtersFromFlags(cmd), opts...)
		if err != nil {
			return err
		}
		if format == formatTable {
			writeCollectionTable(cmd.OutOrStdout(), result)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringP("repo", "r", "", "Target repository as owner/name (required)")
	collectCmd.Flags().IntP("months", "m", 12, "Number of 30-day months to look back")
	collectCmd.Flags().StringP("author", "a", "", "Only count activity by this GitHub login")
	collectCmd.Flags().StringP("format", "f", formatJSON, "Output format: json or table")
	addFilterFlags(collectCmd)
	_ = collectCmd.MarkFlagRequired("repo")
}
