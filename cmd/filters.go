package cmd

import (
	"fmt"
	"strings"

	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/spf13/cobra"
)

// addFilterFlags registers the flags that build domain.AnalysisFilters.
func addFilterFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSlice("branch", nil, "Only count commits and pull requests on these branches (repeatable)")
	fs.StringSlice("exclude-branch", nil, "Skip these branches (repeatable)")
	fs.StringSlice("path", nil, "Only count changes touching these path prefixes (repeatable)")
	fs.StringSlice("exclude-path", nil, "Skip changes touching only these path prefixes (repeatable)")
	fs.StringSlice("language", nil, "Only count changes to files in these languages, e.g. go,python (repeatable)")
	fs.Bool("include-bots", false, "Count activity by bot accounts")
}

func filtersFromFlags(cmd *cobra.Command) *domain.AnalysisFilters {
	fs := cmd.Flags()
	includeBranches, _ := fs.GetStringSlice("branch")
	excludeBranches, _ := fs.GetStringSlice("exclude-branch")
	includePaths, _ := fs.GetStringSlice("path")
	excludePaths, _ := fs.GetStringSlice("exclude-path")
	languages, _ := fs.GetStringSlice("language")
	includeBots, _ := fs.GetBool("include-bots")

	return &domain.AnalysisFilters{
		IncludeBranches:  includeBranches,
		ExcludeBranches:  excludeBranches,
		IncludePaths:     includePaths,
		ExcludePaths:     excludePaths,
		IncludeLanguages: languages,
		ExcludeBots:      !includeBots,
	}
}

// parseRepo checks that repo has the owner/name form.
func parseRepo(repo string) (string, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(repo), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("invalid repository %q: expected owner/name", repo)
	}
	return owner + "/" + name, nil
}
