// Package progress renders orchestrator batches as a progress bar with one
// status line per finished task.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/naka-gawa/github-feedback/internal/orchestrator"
	"github.com/schollz/progressbar/v3"
)

var (
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed)
	timeoutHint  = "Hint: some tasks timed out; raise the matching parallel.*_timeout setting or reduce the period."
	timeoutColor = color.New(color.FgCyan)
)

// Tracker implements orchestrator.Reporter on top of a progress bar.
type Tracker struct {
	bar   *progressbar.ProgressBar
	out   io.Writer
	label string
}

// NewTracker creates a progress bar with the given label and total count,
// writing to w.
func NewTracker(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, out: w, label: label}
}

// NewReporter returns a factory for stderr trackers. With quiet set every
// batch gets a NopReporter.
func NewReporter(quiet bool) func(label string, total int) orchestrator.Reporter {
	return func(label string, total int) orchestrator.Reporter {
		if quiet {
			return orchestrator.NopReporter{}
		}
		return NewTracker(os.Stderr, label, total)
	}
}

// TaskDone prints the task outcome above the bar and advances it.
func (t *Tracker) TaskDone(ev orchestrator.Event) {
	_ = t.bar.Clear()
	switch ev.Status {
	case orchestrator.Succeeded:
		okColor.Fprintf(t.out, "  ✓ %s\n", ev.Label)
	case orchestrator.TimedOut:
		warnColor.Fprintf(t.out, "  ⚠ %s timed out\n", ev.Label)
	default:
		failColor.Fprintf(t.out, "  ✗ %s failed: %v\n", ev.Label, ev.Err)
	}
	_ = t.bar.Add(1)
}

// TimeoutHint prints a hint on how to avoid timeouts.
func (t *Tracker) TimeoutHint() {
	_ = t.bar.Clear()
	timeoutColor.Fprintln(t.out, timeoutHint)
}

// Done finishes and clears the bar.
func (t *Tracker) Done() {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	fmt.Fprintln(t.out)
}
