// Package filter holds the predicates that decide whether a commit, pull
// request, review or issue counts towards a collection.
package filter

import (
	"path"
	"slices"
	"strings"

	"github.com/google/go-github/v84/github"
	"github.com/naka-gawa/github-feedback/internal/domain"
	"github.com/src-d/enry/v2"
)

const botType = "Bot"

// languageByExtension maps a lowercase file extension to the language name
// users are expected to pass to --language.
var languageByExtension = map[string]string{
	"py":    "Python",
	"js":    "JavaScript",
	"jsx":   "JavaScript",
	"ts":    "TypeScript",
	"tsx":   "TypeScript",
	"rb":    "Ruby",
	"go":    "Go",
	"rs":    "Rust",
	"java":  "Java",
	"cs":    "C#",
	"cpp":   "C++",
	"cxx":   "C++",
	"cc":    "C++",
	"c":     "C",
	"kt":    "Kotlin",
	"swift": "Swift",
	"php":   "PHP",
	"scala": "Scala",
	"m":     "Objective-C",
	"mm":    "Objective-C++",
	"hs":    "Haskell",
	"r":     "R",
	"pl":    "Perl",
	"sh":    "Shell",
	"ps1":   "PowerShell",
	"dart":  "Dart",
	"md":    "Markdown",
	"yml":   "YAML",
	"yaml":  "YAML",
	"json":  "JSON",
}

// FilterBot reports whether author must be dropped because bots are excluded.
// A missing author is never treated as a bot.
func FilterBot(author *github.User, filters *domain.AnalysisFilters) bool {
	if filters == nil || !filters.ExcludeBots || author == nil {
		return false
	}
	return author.GetType() == botType
}

// PathMatches is a plain prefix match. An empty prefix matches everything.
func PathMatches(p, prefix string) bool {
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(p, prefix)
}

// ApplyFileFilters reports whether a change touching filenames passes the
// path and language filters.
func ApplyFileFilters(filenames []string, filters *domain.AnalysisFilters) bool {
	if !filters.HasFileFilters() {
		return true
	}

	if len(filters.IncludePaths) > 0 && !anyPathMatches(filenames, filters.IncludePaths) {
		return false
	}
	if len(filters.ExcludePaths) > 0 && anyPathMatches(filenames, filters.ExcludePaths) {
		return false
	}

	if len(filters.IncludeLanguages) > 0 {
		wanted := NormaliseLanguages(filters.IncludeLanguages)
		if len(wanted) == 0 {
			return true
		}
		for _, name := range filenames {
			for _, token := range FilenameLanguageTokens(name) {
				if _, ok := wanted[token]; ok {
					return true
				}
			}
		}
		return false
	}
	return true
}

func anyPathMatches(filenames, prefixes []string) bool {
	for _, name := range filenames {
		for _, prefix := range prefixes {
			if PathMatches(name, prefix) {
				return true
			}
		}
	}
	return false
}

// PRMatchesBranchFilters rejects a pull request whose base or head ref is
// excluded, and, when include branches are set, one touching none of them.
func PRMatchesBranchFilters(pr *github.PullRequest, filters *domain.AnalysisFilters) bool {
	if filters == nil {
		return true
	}
	base := pr.GetBase().GetRef()
	head := pr.GetHead().GetRef()

	if slices.Contains(filters.ExcludeBranches, base) || slices.Contains(filters.ExcludeBranches, head) {
		return false
	}
	if len(filters.IncludeBranches) > 0 {
		return slices.Contains(filters.IncludeBranches, base) || slices.Contains(filters.IncludeBranches, head)
	}
	return true
}

// NormaliseLanguages lowercases the user supplied language filters and
// strips a leading dot so ".PY", "py" and "Python" can all be compared
// against FilenameLanguageTokens.
func NormaliseLanguages(languages []string) map[string]struct{} {
	out := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		token := strings.TrimLeft(strings.ToLower(strings.TrimSpace(l)), ".")
		if token != "" {
			out[token] = struct{}{}
		}
	}
	return out
}

// FilenameLanguageTokens returns the lowercase extension of filename and,
// when known, its lowercase language name.
func FilenameLanguageTokens(filename string) []string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		return nil
	}
	tokens := []string{ext}
	if lang, ok := languageByExtension[ext]; ok {
		return append(tokens, strings.ToLower(lang))
	}
	if lang, safe := enry.GetLanguageByExtension(path.Base(filename)); safe && lang != "" {
		tokens = append(tokens, strings.ToLower(lang))
	}
	return tokens
}

// IssueFiles extracts the file paths an issue refers to: the explicit files
// list plus labels of the form "path:<p>" or "file:<p>".
func IssueFiles(labels []*github.Label, files []string) []string {
	out := slices.Clone(files)
	for _, label := range labels {
		name := label.GetName()
		for _, prefix := range []string{"path:", "file:"} {
			if rest, ok := strings.CutPrefix(name, prefix); ok {
				out = append(out, rest)
			}
		}
	}
	return out
}
