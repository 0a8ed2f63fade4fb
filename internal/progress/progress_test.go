package progress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/naka-gawa/github-feedback/internal/orchestrator"
	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(&buf, "Collecting", 3)

	tr.TaskDone(orchestrator.Event{Label: "commits", Status: orchestrator.Succeeded, Done: 1, Total: 3})
	tr.TaskDone(orchestrator.Event{Label: "issues", Status: orchestrator.TimedOut, Done: 2, Total: 3})
	tr.TaskDone(orchestrator.Event{Label: "reviews", Status: orchestrator.Failed, Err: errors.New("boom"), Done: 3, Total: 3})
	tr.TimeoutHint()
	tr.Done()

	out := buf.String()
	assert.Contains(t, out, "✓ commits")
	assert.Contains(t, out, "⚠ issues timed out")
	assert.Contains(t, out, "✗ reviews failed: boom")
	assert.Contains(t, out, "Hint:")
}

func TestNewReporter(t *testing.T) {
	assert.IsType(t, orchestrator.NopReporter{}, NewReporter(true)("x", 1))
	assert.IsType(t, &Tracker{}, NewReporter(false)("x", 1))
}
