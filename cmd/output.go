package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/naka-gawa/github-feedback/internal/domain"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

func checkFormat(format string) error {
	if format != formatJSON && format != formatTable {
		return fmt.Errorf("unsupported format %q: use %s or %s", format, formatJSON, formatTable)
	}
	return nil
}

// writeJSON marshals v into a pretty-printed JSON document.
func writeJSON(w io.Writer, v any) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	return tbl
}

func writeCollectionTable(w io.Writer, r *domain.CollectionResult) {
	fmt.Fprintf(w, "%s, last %d month(s)", r.Repo, r.Months)
	if r.SinceDate != nil && r.UntilDate != nil {
		fmt.Fprintf(w, " (%s to %s)", r.SinceDate.Format(time.DateOnly), r.UntilDate.Format(time.DateOnly))
	}
	fmt.Fprintln(w)

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Activity", "Count"})
	tbl.AppendRow(table.Row{"Commits", humanize.Comma(int64(r.Commits))})
	tbl.AppendRow(table.Row{"Pull requests", humanize.Comma(int64(r.PullRequests))})
	tbl.AppendRow(table.Row{"Reviews", humanize.Comma(int64(r.Reviews))})
	tbl.AppendRow(table.Row{"Issues", humanize.Comma(int64(r.Issues))})
	fmt.Fprintln(w, tbl.Render())

	if len(r.PullRequestExamples) > 0 {
		prs := newTable()
		prs.AppendHeader(table.Row{"#", "Title", "Author", "Created", "+/-"})
		for _, pr := range r.PullRequestExamples {
			prs.AppendRow(table.Row{
				pr.Number,
				pr.Title,
				pr.Author,
				humanize.Time(pr.CreatedAt),
				fmt.Sprintf("+%s/-%s", humanize.Comma(int64(pr.Additions)), humanize.Comma(int64(pr.Deletions))),
			})
		}
		fmt.Fprintln(w, prs.Render())
	}

	if !r.IsComplete() {
		fmt.Fprintf(w, "Incomplete: %s\n", strings.Join(r.Incomplete, "; "))
	}
}

func writeYearSummaryTable(w io.Writer, s *domain.YearSummary) {
	fmt.Fprintf(w, "%d year review for %s\n", s.Year, s.Login)

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Repository", "Commits", "Pull requests", "Reviews", "Issues", ""})
	for _, r := range s.Repositories {
		tbl.AppendRow(statsRow(r))
	}
	tbl.AppendFooter(statsRow(&s.Totals))
	fmt.Fprintln(w, tbl.Render())

	fmt.Fprintf(w, "Commits per repository: median %.1f, p90 %.1f\n", s.CommitsMedian, s.CommitsP90)
	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped: %s\n", strings.Join(s.Skipped, ", "))
	}
}

func statsRow(r *domain.RepoStats) table.Row {
	mark := ""
	if r.Incomplete {
		mark = "incomplete"
	}
	return table.Row{
		r.Name,
		humanize.Comma(int64(r.Commits)),
		humanize.Comma(int64(r.PullRequests)),
		humanize.Comma(int64(r.Reviews)),
		humanize.Comma(int64(r.Issues)),
		mark,
	}
}
