// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "github-feedback",
	Short: "A CLI tool to collect and review GitHub repository activity.",
	Long: `github-feedback counts commits, pull requests, reviews and issues in a
GitHub repository over a window of months, optionally restricted by branch,
path, language and author. It can also ask an LLM for written feedback on the
collected activity and summarise a whole year across every repository you
contributed to.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file (default .github-feedback.yaml in the current or home directory)")
	rootCmd.PersistentFlags().Bool("no-progress", false, "Disable progress bars")
}
